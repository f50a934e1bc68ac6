package ttag

// hugeOffset stands in for the spec's "+HUGE" sentinel: when no stream
// carries a T-Tag, nextTTagPkt is pushed far enough out that the 64-bit
// packet counter's wraparound is the only way it could ever be reached.
const hugeOffset = uint64(1) << 62

// Stamper holds the run's T-Tag cursor: the absolute global packet count
// at which to stamp next, the cursor into the cyclic delta-marker list,
// and the wrapping 8-bit tag identifier.
type Stamper struct {
	nextTTagPkt uint64
	markerIndex int
	ttagID      byte

	markers []int64
}

// NewStamper initializes a Stamper for one engine run. globalPkts is the
// StatsLedger's packet counter at start; firstTTagPkt and markers come
// from the Program (firstTTagPkt is -1 and markers is empty if no stream
// carries a T-Tag).
func NewStamper(globalPkts uint64, firstTTagPkt int, markers []int64) *Stamper {
	s := &Stamper{markers: markers}
	if firstTTagPkt >= 0 {
		s.nextTTagPkt = globalPkts + uint64(firstTTagPkt)
	} else {
		s.nextTTagPkt = globalPkts + hugeOffset
	}
	return s
}

// Due reports whether globalPkts — the packet counter's value immediately
// before this packet is sunk — is the stamp point.
func (s *Stamper) Due(globalPkts uint64) bool {
	return len(s.markers) > 0 && globalPkts == s.nextTTagPkt
}

// Stamp mutates payload in place (two single-byte stores, never a
// halfword store, to avoid misaligned access) and, if cksumOffset is
// non-zero, rewrites the L4 checksum there. It returns the state Restore
// needs to undo the checksum half.
func (s *Stamper) Stamp(payload []byte, cksumOffset int) (origCksum uint16) {
	return stampBytes(payload, s.ttagID, cksumOffset)
}

// Restore reverts Stamp's mutation.
func (s *Stamper) Restore(payload []byte, origCksum uint16, cksumOffset int) {
	restoreBytes(payload, origCksum, cksumOffset)
}

// Advance moves to the next insertion point and bumps the tag id. ttagID
// wraps on overflow (byte arithmetic); markerIndex cycles modulo the
// marker list length.
func (s *Stamper) Advance() {
	s.ttagID++
	s.nextTTagPkt += uint64(s.markers[s.markerIndex])
	s.markerIndex = (s.markerIndex + 1) % len(s.markers)
}

// TTagID returns the tag id that the next Stamp call will write.
func (s *Stamper) TTagID() byte { return s.ttagID }
