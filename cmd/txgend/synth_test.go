package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l2dy/ostinato/internal/ttag"
	"github.com/l2dy/ostinato/internal/txprogram"
)

func TestBuildSyntheticProgramProducesOneStreamOfPackets(t *testing.T) {
	program, err := buildSyntheticProgram(4, 1000, true, nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, program.PacketListSize)

	require.Len(t, program.Sequences, 1)
	seq := program.Sequences[0]
	assert.EqualValues(t, 4, seq.Packets())

	guids := make(map[uint32]int)
	seq.ForEach(func(offset int, hdr txprogram.RecordHeader, payload []byte) bool {
		guid, present := ttag.PacketGUID(payload)
		if present {
			guids[guid]++
		}
		return true
	})
	assert.Len(t, guids, 1, "every synthetic packet should share one stream guid")
}

func TestUUIDToStreamGUIDIsDeterministicForSameUUID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, uuidToStreamGUID(id), uuidToStreamGUID(id))
}

func TestUUIDToStreamGUIDPopulatesTrailerParsablePayload(t *testing.T) {
	guid := uuidToStreamGUID(uuid.New())
	payload := ttag.AppendTrailer(make([]byte, 10), guid)
	got, present := ttag.PacketGUID(payload)
	assert.True(t, present)
	assert.Equal(t, guid, got)
}
