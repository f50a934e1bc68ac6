// Package sink provides the concrete PacketSink/BatchSink implementations
// the run loop transmits through: a live NIC handle and an in-memory
// stand-in for tests and dry runs.
package sink

import (
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/l2dy/ostinato/internal/txengine"
)

// LiveSink sinks packets onto a real interface via libpcap/Npcap.
type LiveSink struct {
	handle *pcap.Handle
}

// NewLiveSink opens iface for live sending with the given snap length and
// I/O timeout. Construction failure is reported as ErrDeviceOpenFailed,
// matching the run loop's contract that device acquisition happens once
// up front, not lazily on first send.
func NewLiveSink(iface string, snaplen int32, timeout time.Duration) (*LiveSink, error) {
	handle, err := pcap.OpenLive(iface, snaplen, true, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", txengine.ErrDeviceOpenFailed, err)
	}
	return &LiveSink{handle: handle}, nil
}

// SendPacket writes payload[:capturedLen] onto the wire.
func (s *LiveSink) SendPacket(payload []byte, capturedLen int) error {
	if capturedLen > len(payload) {
		capturedLen = len(payload)
	}
	return s.handle.WritePacketData(payload[:capturedLen])
}

// Close releases the underlying handle. Safe to call once the owning
// Engine is no longer Running.
func (s *LiveSink) Close() {
	s.handle.Close()
}
