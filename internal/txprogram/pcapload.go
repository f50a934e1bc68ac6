package txprogram

import (
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/l2dy/ostinato/internal/log"
)

// LoadFromPcap builds a one-set Program by replaying every packet in the
// capture at path in order, its relative timestamps computed against the
// first packet's, grounded in the teacher's PcapRepository.NextPacket
// read loop (same pcap.OpenOffline + gopacket.NewPacketSource pairing),
// generalized from TCP-flow extraction to raw-payload capture. loop
// re-arms the program to repeat indefinitely with loopDelay between
// revolutions; a zero loopDelay replays back-to-back.
func LoadFromPcap(path string, trackStreamStats bool, loop bool, loopDelaySec, loopDelayNsec int64, logger log.Logger) (*Program, error) {
	if logger == nil {
		logger = log.New()
	}
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("txprogram: open %s: %w", path, err)
	}
	defer handle.Close()

	source := gopacket.NewPacketSource(handle, handle.LinkType())

	b := NewBuilder(trackStreamStats, 0, logger)

	var payloads [][]byte
	var secs, nsecs []int64
	var t0set bool
	var t0Sec, t0Nsec int64

	for {
		packet, err := source.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("txprogram: read %s: %w", path, err)
		}

		ts := packet.Metadata().CaptureInfo.Timestamp
		sec, nsec := int64(ts.Unix()), int64(ts.Nanosecond())
		if !t0set {
			t0Sec, t0Nsec = sec, nsec
			t0set = true
		}
		relSec, relNsec := sec-t0Sec, nsec-t0Nsec
		if relNsec < 0 {
			relNsec += 1_000_000_000
			relSec--
		}

		payloads = append(payloads, packet.Data())
		secs = append(secs, relSec)
		nsecs = append(nsecs, relNsec)
	}

	if len(payloads) == 0 {
		logger.Warnf("txprogram: %s contains no packets", path)
		return b.Build(), nil
	}

	b.BeginPacketSet(int64(len(payloads)), 1, 0, 0)
	for i := range payloads {
		if err := b.Append(secs[i], nsecs[i], payloads[i]); err != nil {
			return nil, fmt.Errorf("txprogram: append packet %d: %w", i, err)
		}
	}
	b.SetLoop(loop, loopDelaySec, loopDelayNsec)

	return b.Build(), nil
}
