package txprogram

import "errors"

// DefaultCapacity bounds how many bytes of encoded records a PacketSequence
// may hold before the Builder must roll over to a new one. 1 MiB, chosen
// the way the original chose 64 KiB/1 MiB: a fixed per-sequence buffer, no
// further justification required by the algorithm itself.
const DefaultCapacity = 1 << 20

// ErrSequenceFull is returned by Append when a record would overflow the
// sequence's fixed capacity. Builder.Append handles it by rolling over to a
// fresh PacketSequence; callers appending directly should treat it the
// same way.
var ErrSequenceFull = errors.New("txprogram: packet sequence is full")

// StreamStats is one stream's packet/byte contribution for a single pass
// of a PacketSequence.
type StreamStats struct {
	TxPkts  uint64
	TxBytes uint64
}

// PacketSequence is a contiguous, pre-serialized send-buffer of
// back-to-back records, plus the metadata the run loop and the
// post-run stream-stat attribution need.
type PacketSequence struct {
	buffer []byte

	packets uint64
	bytes   uint64

	usecDuration int64
	usecDelay    int64

	repeatCount int64
	repeatSize  int

	ttagL4CksumOffset int

	trackStreamStats bool
	streamStatsMeta  map[uint32]StreamStats

	lastHeader *RecordHeader
}

// NewPacketSequence returns an empty sequence with repeatCount=1 (no
// internal repeat) and repeatSize=0 (non-head; the Builder sets it to the
// group span on the sequence that actually leads a group).
func NewPacketSequence(trackStreamStats bool, capacity int) *PacketSequence {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PacketSequence{
		buffer:           make([]byte, 0, capacity),
		repeatCount:      1,
		trackStreamStats: trackStreamStats,
	}
}

// HasFreeSpace reports whether n more encoded bytes (header+payload, for at
// least one more record) fit within the sequence's fixed capacity.
func (s *PacketSequence) HasFreeSpace(n int) bool {
	return len(s.buffer)+n <= cap(s.buffer)
}

// Append copies hdr and payload into the buffer as one record. It returns
// ErrSequenceFull without mutating the sequence if the capacity would be
// exceeded.
func (s *PacketSequence) Append(hdr RecordHeader, payload []byte) error {
	need := recordHeaderSize + len(payload)
	if !s.HasFreeSpace(need) {
		return ErrSequenceFull
	}

	start := len(s.buffer)
	s.buffer = s.buffer[:start+need]
	hdr.encode(s.buffer[start : start+recordHeaderSize])
	copy(s.buffer[start+recordHeaderSize:start+need], payload)

	if s.lastHeader != nil {
		s.usecDuration += diffUsec(*s.lastHeader, hdr)
	}
	h := hdr
	s.lastHeader = &h

	s.packets++
	s.bytes += uint64(hdr.CapturedLen)
	return nil
}

// ForEach walks the buffer's records in insertion order, calling fn with
// each record's byte offset, header and payload slice. It stops early if
// fn returns false.
func (s *PacketSequence) ForEach(fn func(offset int, hdr RecordHeader, payload []byte) bool) {
	offset := 0
	for offset < len(s.buffer) {
		hdr := decodeRecordHeader(s.buffer[offset : offset+recordHeaderSize])
		payloadStart := offset + recordHeaderSize
		payloadEnd := payloadStart + int(hdr.CapturedLen)
		if !fn(offset, hdr, s.buffer[payloadStart:payloadEnd]) {
			return
		}
		offset = payloadEnd
	}
}

// RawBuffer returns the sequence's encoded record buffer, the same
// header+payload encoding a BatchSink's fast path consumes wholesale
// instead of record-by-record.
func (s *PacketSequence) RawBuffer() []byte { return s.buffer }

// FirstHeader returns the header of the first record, used by send_sequence
// to seed its timestamp anchor. ok is false for an empty sequence.
func (s *PacketSequence) FirstHeader() (hdr RecordHeader, ok bool) {
	if len(s.buffer) < recordHeaderSize {
		return RecordHeader{}, false
	}
	return decodeRecordHeader(s.buffer[:recordHeaderSize]), true
}

func (s *PacketSequence) Packets() uint64  { return s.packets }
func (s *PacketSequence) Bytes() uint64    { return s.bytes }
func (s *PacketSequence) UsecDuration() int64 { return s.usecDuration }

func (s *PacketSequence) UsecDelay() int64      { return s.usecDelay }
func (s *PacketSequence) SetUsecDelay(v int64)  { s.usecDelay = v }

func (s *PacketSequence) RepeatCount() int64     { return s.repeatCount }
func (s *PacketSequence) SetRepeatCount(v int64) { s.repeatCount = v }

func (s *PacketSequence) RepeatSize() int     { return s.repeatSize }
func (s *PacketSequence) SetRepeatSize(v int) { s.repeatSize = v }

func (s *PacketSequence) TTagL4CksumOffset() int     { return s.ttagL4CksumOffset }
func (s *PacketSequence) SetTTagL4CksumOffset(v int) { s.ttagL4CksumOffset = v }

// IsTTagEligible reports whether this sequence carries a checksum offset
// for T-Tag fixup; the engine's batched fast path must never be used for
// one of these (spec's resolved fast-path/T-Tag interaction).
func (s *PacketSequence) IsTTagEligible() bool { return s.ttagL4CksumOffset != 0 }

// AddStreamStats accumulates one record's contribution toward guid's
// per-pass totals. A no-op if stream-stat tracking was disabled for this
// sequence.
func (s *PacketSequence) AddStreamStats(guid uint32, pkts, bytes uint64) {
	if !s.trackStreamStats {
		return
	}
	if s.streamStatsMeta == nil {
		s.streamStatsMeta = make(map[uint32]StreamStats)
	}
	e := s.streamStatsMeta[guid]
	e.TxPkts += pkts
	e.TxBytes += bytes
	s.streamStatsMeta[guid] = e
}

// StreamStatsMeta returns the per-guid contribution of one pass of this
// sequence. The returned map must not be mutated by the caller.
func (s *PacketSequence) StreamStatsMeta() map[uint32]StreamStats {
	return s.streamStatsMeta
}

func diffUsec(prev, next RecordHeader) int64 {
	d := (next.TsSec-prev.TsSec)*1_000_000 + (next.TsUsec - prev.TsUsec)
	if d < 0 {
		return 0
	}
	return d
}
