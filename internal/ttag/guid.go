package ttag

import "encoding/binary"

// Fixed shape of the signature-protocol trailer a stream-GUID-carrying
// packet ends with: <guid:u32 BE> 0x61 <ttag:u8> <type_len:u8> 0x1d10c0da.
// The engine treats this as opaque except for the guid it needs to
// attribute a partial revolution's packets to a stream.
const (
	trailerLen       = 11
	trailerSeparator = 0x61
	trailerMagic     = 0x1d10c0da
)

// PacketGUID parses the trailer out of payload. present is false if
// payload is shorter than the trailer or the separator/magic bytes don't
// match, in which case guid is 0 and must not be used.
func PacketGUID(payload []byte) (guid uint32, present bool) {
	if len(payload) < trailerLen {
		return 0, false
	}
	t := payload[len(payload)-trailerLen:]
	if t[4] != trailerSeparator {
		return 0, false
	}
	if binary.BigEndian.Uint32(t[7:11]) != trailerMagic {
		return 0, false
	}
	return binary.BigEndian.Uint32(t[0:4]), true
}

// AppendTrailer appends the fixed 11-byte stream-GUID trailer to payload
// and returns the extended slice, the write-side counterpart to
// PacketGUID. Used by packet-crafting front ends (the demo CLI's
// synthetic program builder, in this repo) rather than by the engine
// itself, which only ever reads trailers back.
func AppendTrailer(payload []byte, guid uint32) []byte {
	trailer := make([]byte, trailerLen)
	binary.BigEndian.PutUint32(trailer[0:4], guid)
	trailer[4] = trailerSeparator
	trailer[5] = ttagIDPlaceholder
	trailer[6] = TypeLenTTagPlaceholder
	binary.BigEndian.PutUint32(trailer[7:11], trailerMagic)
	return append(payload, trailer...)
}
