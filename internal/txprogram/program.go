package txprogram

// Program is the assembled, immutable-once-built list of sequences the
// engine plays back.
type Program struct {
	Sequences []*PacketSequence

	// ReturnToIndex is -1 for a one-shot program, or the sequence index to
	// resume from after the final group finishes.
	ReturnToIndex int
	LoopDelayUsec int64

	// FirstTTagPkt is -1 if no stream carries a T-Tag, else the 0-based
	// packet index (within one revolution) of the first insertion point.
	FirstTTagPkt int
	// TTagDeltaMarkers is non-empty iff FirstTTagPkt >= 0: successive gaps
	// between insertion points, with the last entry wrapping so cycling
	// the deltas reproduces the sequence modulo the revolution length.
	TTagDeltaMarkers []int64

	// PacketListSize is the total packet count of one full revolution,
	// each sequence's own repeat_count already folded in.
	PacketListSize uint64
}

// Loops reports whether the program returns to an earlier index after its
// last group finishes.
func (p *Program) Loops() bool { return p.ReturnToIndex >= 0 }

// HasTTag reports whether any packet in a revolution carries a T-Tag.
func (p *Program) HasTTag() bool { return p.FirstTTagPkt >= 0 }
