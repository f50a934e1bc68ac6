package ttag

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onesComplementSum is an independent, non-incremental ones-complement
// checksum over b, used to validate the incremental RFC 1624 fixup by full
// recomputation (the pre-sink checksum must satisfy
// fold(~HC_new) == fold(~HC_old + changes)).
func onesComplementSum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum > 0xffff {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// buildStampablePacket returns a packet of totalLen bytes with the Ttag
// trailer at its placeholder values and a valid checksum (covering
// [cksumOffset:]) at cksumOffset, computed the ordinary way.
func buildStampablePacket(t *testing.T, totalLen, cksumOffset int) []byte {
	t.Helper()
	require.GreaterOrEqual(t, totalLen, cksumOffset+2)
	require.GreaterOrEqual(t, totalLen, 6)

	pkt := make([]byte, totalLen)
	for i := range pkt {
		pkt[i] = byte(i * 7)
	}
	pkt[totalLen-6] = ttagIDPlaceholder
	pkt[totalLen-5] = TypeLenTTagPlaceholder

	binary.BigEndian.PutUint16(pkt[cksumOffset:cksumOffset+2], 0)
	cksum := onesComplementSum(pkt[cksumOffset:])
	binary.BigEndian.PutUint16(pkt[cksumOffset:cksumOffset+2], cksum)
	return pkt
}

func TestStampThenRestoreRoundTrip(t *testing.T) {
	for _, totalLen := range []int{64, 65} {
		pkt := buildStampablePacket(t, totalLen, 20)
		original := append([]byte(nil), pkt...)

		orig := stampBytes(pkt, 0x5A, 20)
		assert.NotEqual(t, original, pkt, "stamp should have mutated the buffer")

		restoreBytes(pkt, orig, 20)
		assert.Equal(t, original, pkt)
	}
}

func TestStampWithoutChecksumOffset(t *testing.T) {
	pkt := buildStampablePacket(t, 64, 20)
	original := append([]byte(nil), pkt...)

	orig := stampBytes(pkt, 7, 0)
	assert.Equal(t, byte(7), pkt[len(pkt)-6])
	assert.Equal(t, TypeLenTTag, pkt[len(pkt)-5])
	// checksum bytes untouched since cksumOffset==0
	assert.Equal(t, original[20:22], pkt[20:22])

	restoreBytes(pkt, orig, 0)
	assert.Equal(t, original, pkt)
}

// TestEvenLengthChecksumMatchesIndependentRecompute covers S5/invariant 6:
// the incrementally fixed-up checksum must equal a full recompute over the
// stamped buffer.
func TestEvenLengthChecksumMatchesIndependentRecompute(t *testing.T) {
	n := 64
	pkt := buildStampablePacket(t, n, 20)
	require.Zero(t, n%2)

	stampBytes(pkt, 0x11, 20)

	want := independentRecompute(pkt, 20)
	got := binary.BigEndian.Uint16(pkt[20:22])
	assert.Equal(t, want, got)
}

func TestOddLengthChecksumMatchesIndependentRecompute(t *testing.T) {
	n := 65
	pkt := buildStampablePacket(t, n, 20)
	require.Equal(t, 1, n%2)

	stampBytes(pkt, 0x5A, 20)

	want := independentRecompute(pkt, 20)
	got := binary.BigEndian.Uint16(pkt[20:22])
	assert.Equal(t, want, got)
}

// independentRecompute zeros the checksum field and recomputes it from
// scratch over [cksumOffset:], mirroring how a full (non-incremental)
// implementation would validate the stamped buffer.
func independentRecompute(pkt []byte, cksumOffset int) uint16 {
	scratch := append([]byte(nil), pkt...)
	binary.BigEndian.PutUint16(scratch[cksumOffset:cksumOffset+2], 0)
	return onesComplementSum(scratch[cksumOffset:])
}
