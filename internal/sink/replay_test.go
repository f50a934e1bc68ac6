package sink

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRecord(capturedLen, wireLen uint32, tsSec, tsUsec int64, payload []byte) []byte {
	buf := make([]byte, replayRecordHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], capturedLen)
	binary.LittleEndian.PutUint32(buf[4:8], wireLen)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(tsSec))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(tsUsec))
	copy(buf[24:], payload)
	return buf
}

func TestReplaySinkSendPacketRecordsTruncatedPayload(t *testing.T) {
	s := NewReplaySink()
	require.NoError(t, s.SendPacket([]byte{1, 2, 3, 4}, 2))

	got := s.Sent()
	require.Len(t, got, 1)
	assert.Equal(t, []byte{1, 2}, got[0])
}

func TestReplaySinkSendQueueSplitsRecords(t *testing.T) {
	s := NewReplaySink()
	var buf []byte
	buf = append(buf, encodeRecord(3, 3, 0, 0, []byte{0xaa, 0xbb, 0xcc})...)
	buf = append(buf, encodeRecord(2, 2, 0, 1000, []byte{0xdd, 0xee})...)

	sent, err := s.SendQueue(buf, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	got := s.Sent()
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, got[0])
	assert.Equal(t, []byte{0xdd, 0xee}, got[1])
}

func TestReplaySinkReset(t *testing.T) {
	s := NewReplaySink()
	require.NoError(t, s.SendPacket([]byte{1}, 1))
	s.Reset()
	assert.Empty(t, s.Sent())
}
