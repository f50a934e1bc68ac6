package txprogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndForEach(t *testing.T) {
	s := NewPacketSequence(false, 0)
	require.NoError(t, s.Append(RecordHeader{CapturedLen: 3, WireLen: 3}, []byte{1, 2, 3}))
	require.NoError(t, s.Append(RecordHeader{CapturedLen: 2, WireLen: 2}, []byte{4, 5}))

	assert.EqualValues(t, 2, s.Packets())
	assert.EqualValues(t, 5, s.Bytes())

	var seen [][]byte
	s.ForEach(func(offset int, hdr RecordHeader, payload []byte) bool {
		cp := append([]byte(nil), payload...)
		seen = append(seen, cp)
		return true
	})
	require.Len(t, seen, 2)
	assert.Equal(t, []byte{1, 2, 3}, seen[0])
	assert.Equal(t, []byte{4, 5}, seen[1])
}

func TestHasFreeSpaceAndFull(t *testing.T) {
	s := NewPacketSequence(false, recordHeaderSize+4)
	assert.True(t, s.HasFreeSpace(recordHeaderSize + 4))
	require.NoError(t, s.Append(RecordHeader{CapturedLen: 4}, []byte{1, 2, 3, 4}))
	assert.False(t, s.HasFreeSpace(1))
	assert.ErrorIs(t, s.Append(RecordHeader{CapturedLen: 1}, []byte{9}), ErrSequenceFull)
}

func TestForEachStopsEarly(t *testing.T) {
	s := NewPacketSequence(false, 0)
	require.NoError(t, s.Append(RecordHeader{CapturedLen: 1}, []byte{1}))
	require.NoError(t, s.Append(RecordHeader{CapturedLen: 1}, []byte{2}))

	count := 0
	s.ForEach(func(offset int, hdr RecordHeader, payload []byte) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestStreamStatsAccumulation(t *testing.T) {
	s := NewPacketSequence(true, 0)
	s.AddStreamStats(7, 1, 64)
	s.AddStreamStats(7, 1, 64)
	s.AddStreamStats(9, 1, 32)

	meta := s.StreamStatsMeta()
	require.Len(t, meta, 2)
	assert.Equal(t, StreamStats{TxPkts: 2, TxBytes: 128}, meta[7])
	assert.Equal(t, StreamStats{TxPkts: 1, TxBytes: 32}, meta[9])
}

func TestStreamStatsDisabledIsNoop(t *testing.T) {
	s := NewPacketSequence(false, 0)
	s.AddStreamStats(1, 1, 1)
	assert.Nil(t, s.StreamStatsMeta())
}

func TestFirstHeaderEmpty(t *testing.T) {
	s := NewPacketSequence(false, 0)
	_, ok := s.FirstHeader()
	assert.False(t, ok)
}
