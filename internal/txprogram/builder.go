package txprogram

import (
	"github.com/l2dy/ostinato/internal/log"
	"github.com/l2dy/ostinato/internal/ttag"
)

// Builder assembles a Program from packets delivered in stream order,
// grouped into caller-declared "packet sets". Call BeginPacketSet once per
// set, then Append once per packet in that set; the set completes itself
// once Append has been called size times since the matching
// BeginPacketSet.
type Builder struct {
	log              log.Logger
	trackStreamStats bool
	capacity         int

	sequences []*PacketSequence
	current   *PacketSequence

	setSize        int64 // target packet count for the open set, 0 when none is open
	setRepeats     int64
	setDelayUsec   int64 // the open set's inter-repeat delay
	setStartIndex  int
	setPacketCount int64

	packetListSize uint64

	returnToIndex    int
	loopDelayUsec    int64
	firstTTagPkt     int
	ttagDeltaMarkers []int64
}

// NewBuilder returns an empty Builder. trackStreamStats controls whether
// sequences created by this builder accumulate per-guid stream-stat
// metadata; capacity<=0 uses DefaultCapacity.
func NewBuilder(trackStreamStats bool, capacity int, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.New()
	}
	b := &Builder{
		log:              logger,
		trackStreamStats: trackStreamStats,
		capacity:         capacity,
	}
	b.Clear()
	return b
}

// Clear discards all sequences and resets loop/T-Tag configuration,
// matching clear_packet_list's documented round-trip (clear -> build ->
// clear yields an empty program).
func (b *Builder) Clear() {
	b.sequences = nil
	b.current = nil
	b.setSize = 0
	b.setRepeats = 0
	b.setStartIndex = -1
	b.setPacketCount = 0
	b.packetListSize = 0
	b.SetLoop(false, 0, 0)
	b.firstTTagPkt = -1
	b.ttagDeltaMarkers = nil
}

// BeginPacketSet opens a new current sequence with the given inner repeat
// count and records that the next size packets (across however many
// sequences they end up spanning) form this set.
func (b *Builder) BeginPacketSet(size, repeats, repeatDelaySec, repeatDelayNsec int64) {
	if b.current != nil {
		b.log.Warnf("txprogram: begin_packet_set called with a set already open, discarding %d pending packets", b.setSize-b.setPacketCount)
	}
	b.current = NewPacketSequence(b.trackStreamStats, b.capacity)
	b.current.repeatCount = repeats
	b.current.usecDelay = repeatDelaySec*1_000_000 + repeatDelayNsec/1000

	b.setStartIndex = len(b.sequences)
	b.setSize = size
	b.setRepeats = repeats
	b.setDelayUsec = b.current.usecDelay
	b.setPacketCount = 0

	b.sequences = append(b.sequences, b.current)
}

// Append appends one record with relative timestamp (sec, nsec/1000) and
// the given payload. If the current sequence cannot hold it, Append closes
// it — setting its usec_delay to the gap between the incoming record and
// the closing sequence's last record — and opens a fresh sequence that
// inherits the open set's repeat count.
func (b *Builder) Append(sec, nsec int64, payload []byte) error {
	if b.current == nil {
		panic("txprogram: append called without an open packet set")
	}

	hdr := RecordHeader{
		CapturedLen: uint32(len(payload)),
		WireLen:     uint32(len(payload)),
		TsSec:       sec,
		TsUsec:      nsec / 1000,
	}

	if !b.current.HasFreeSpace(recordHeaderSize + len(payload)) {
		if last := b.current.lastHeader; last != nil {
			b.current.usecDelay = diffUsec(*last, hdr)
		}
		next := NewPacketSequence(b.trackStreamStats, b.capacity)
		next.repeatCount = b.setRepeats
		b.sequences = append(b.sequences, next)
		b.current = next
	}

	if err := b.current.Append(hdr, payload); err != nil {
		return err
	}
	if guid, present := ttag.PacketGUID(payload); present {
		b.current.AddStreamStats(guid, 1, uint64(len(payload)))
	}

	b.setPacketCount++
	if b.setSize > 0 {
		b.packetListSize += uint64(b.current.repeatCount)
	} else {
		b.packetListSize++
	}

	if b.setSize > 0 && b.setPacketCount == b.setSize {
		b.closeSet()
	}
	return nil
}

// closeSet reconciles the just-completed packet set: the last sequence in
// the set inherits the set's inter-repeat delay (moved from the first),
// the first sequence's usec_delay is zeroed, and the first sequence's
// repeat_size is set to the number of sequences the set ended up
// spanning.
func (b *Builder) closeSet() {
	head := b.sequences[b.setStartIndex]
	span := len(b.sequences) - b.setStartIndex

	if span > 1 {
		tail := b.sequences[len(b.sequences)-1]
		tail.usecDelay = b.setDelayUsec
		head.usecDelay = 0
	}
	head.repeatSize = span

	b.setSize = 0
	b.setRepeats = 0
	b.setStartIndex = -1
	b.setPacketCount = 0
	b.current = nil
}

// SetLoop sets return_to_index (0 if enabled, -1 otherwise) and
// loop_delay_usec.
func (b *Builder) SetLoop(enabled bool, secDelay, nsecDelay int64) {
	if enabled {
		b.returnToIndex = 0
	} else {
		b.returnToIndex = -1
	}
	b.loopDelayUsec = secDelay*1_000_000 + nsecDelay/1000
}

// SetTTagMarkers sets first_ttag_pkt and ttag_delta_markers from an
// ordered list of 0-based packet indices within one revolution that must
// be stamped, plus the revolution's total packet count.
func (b *Builder) SetTTagMarkers(indices []int64, repeatInterval int64) {
	if len(indices) == 0 {
		b.firstTTagPkt = -1
		b.ttagDeltaMarkers = nil
		return
	}

	b.firstTTagPkt = int(indices[0])
	markers := make([]int64, len(indices))
	for i := 0; i < len(indices)-1; i++ {
		markers[i] = indices[i+1] - indices[i]
	}
	markers[len(indices)-1] = repeatInterval - indices[len(indices)-1] + indices[0]
	b.ttagDeltaMarkers = markers
}

// PacketListSize returns the current packet_list_size accumulator.
func (b *Builder) PacketListSize() uint64 { return b.packetListSize }

// Build returns the assembled Program. The Builder remains usable; call
// Clear first if the caller wants a fresh program.
func (b *Builder) Build() *Program {
	return &Program{
		Sequences:        b.sequences,
		ReturnToIndex:    b.returnToIndex,
		LoopDelayUsec:    b.loopDelayUsec,
		FirstTTagPkt:     b.firstTTagPkt,
		TTagDeltaMarkers: b.ttagDeltaMarkers,
		PacketListSize:   b.packetListSize,
	}
}
