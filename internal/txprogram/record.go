// Package txprogram builds and stores the pre-serialized packet sequences
// the engine plays back: PacketSequence holds a contiguous send-buffer of
// records, and Builder assembles one or more PacketSequences per
// caller-declared "packet set", tracking repeat counts, inter-repeat
// delays and the overall loop/T-Tag configuration.
package txprogram

import "encoding/binary"

// recordHeaderSize is the encoded size of RecordHeader: two u32 length
// fields plus two i64 timestamp fields.
const recordHeaderSize = 24

// RecordHeader is the fixed header preceding every packet's raw bytes in a
// PacketSequence buffer. Timestamps are relative scheduling hints recorded
// at build time, not wall-clock times.
type RecordHeader struct {
	CapturedLen uint32
	WireLen     uint32
	TsSec       int64
	TsUsec      int64
}

func (h RecordHeader) encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], h.CapturedLen)
	binary.LittleEndian.PutUint32(dst[4:8], h.WireLen)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(h.TsSec))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(h.TsUsec))
}

func decodeRecordHeader(src []byte) RecordHeader {
	return RecordHeader{
		CapturedLen: binary.LittleEndian.Uint32(src[0:4]),
		WireLen:     binary.LittleEndian.Uint32(src[4:8]),
		TsSec:       int64(binary.LittleEndian.Uint64(src[8:16])),
		TsUsec:      int64(binary.LittleEndian.Uint64(src[16:24])),
	}
}
