package main

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/l2dy/ostinato/internal/log"
	"github.com/l2dy/ostinato/internal/ttag"
	"github.com/l2dy/ostinato/internal/txprogram"
)

// buildSyntheticProgram is the no-pcap-file demo path: it manufactures a
// single packet set of count minimal Ethernet-sized frames, each closed
// with a stream-GUID trailer derived from a freshly generated UUID (the
// same "one random stream identifier per synthetic flow" role
// `network.go`'s `uuid.NewString()` plays for the core simulator's UE
// identities), so stream-stat attribution has something to attribute to
// without requiring a captured front-end program as input.
func buildSyntheticProgram(count int, interPacketUsec int64, trackStreamStats bool, logger log.Logger) (*txprogram.Program, error) {
	streamGUID := uuidToStreamGUID(uuid.New())

	b := txprogram.NewBuilder(trackStreamStats, 0, logger)
	b.BeginPacketSet(int64(count), 1, 0, 0)
	for i := 0; i < count; i++ {
		payload := ttag.AppendTrailer(make([]byte, 60), streamGUID)
		sec := (int64(i) * interPacketUsec) / 1_000_000
		nsec := ((int64(i) * interPacketUsec) % 1_000_000) * 1000
		if err := b.Append(sec, nsec, payload); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// uuidToStreamGUID folds a 128-bit UUID down to the engine's 32-bit
// stream identifier space by XOR-ing its four 32-bit words.
func uuidToStreamGUID(id uuid.UUID) uint32 {
	var guid uint32
	for i := 0; i < 16; i += 4 {
		guid ^= binary.BigEndian.Uint32(id[i : i+4])
	}
	return guid
}
