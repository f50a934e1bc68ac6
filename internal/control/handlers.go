package control

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/l2dy/ostinato/internal/txprogram"
)

// configureRequest is the JSON program description POSTed to
// /txengine/v1/configure: a list of packet sets plus optional loop and
// T-Tag configuration, translated into ProgramBuilder calls.
type configureRequest struct {
	TrackStreamStats bool              `json:"trackStreamStats"`
	Sets             []packetSetConfig `json:"sets"`
	Loop             *loopConfig       `json:"loop,omitempty"`
	TTag             *ttagConfig       `json:"ttag,omitempty"`
}

type packetSetConfig struct {
	Repeats         int64          `json:"repeats"`
	RepeatDelaySec  int64          `json:"repeatDelaySec"`
	RepeatDelayNsec int64          `json:"repeatDelayNsec"`
	Packets         []packetConfig `json:"packets"`
}

type packetConfig struct {
	Sec     int64  `json:"sec"`
	Nsec    int64  `json:"nsec"`
	Payload []byte `json:"payload"` // JSON base64, matching encoding/json's []byte handling
}

type loopConfig struct {
	Enabled   bool  `json:"enabled"`
	DelaySec  int64 `json:"delaySec"`
	DelayNsec int64 `json:"delayNsec"`
}

type ttagConfig struct {
	Indices        []int64 `json:"indices"`
	RepeatInterval int64   `json:"repeatInterval"`
}

type statusResponse struct {
	State          string  `json:"state"`
	LastTxDuration float64 `json:"lastTxDuration"`
}

func buildProgram(req configureRequest) (*txprogram.Program, error) {
	b := txprogram.NewBuilder(req.TrackStreamStats, 0, nil)
	for _, set := range req.Sets {
		b.BeginPacketSet(int64(len(set.Packets)), set.Repeats, set.RepeatDelaySec, set.RepeatDelayNsec)
		for _, pkt := range set.Packets {
			if err := b.Append(pkt.Sec, pkt.Nsec, pkt.Payload); err != nil {
				return nil, err
			}
		}
	}
	if req.Loop != nil {
		b.SetLoop(req.Loop.Enabled, req.Loop.DelaySec, req.Loop.DelayNsec)
	}
	if req.TTag != nil && len(req.TTag.Indices) > 0 {
		b.SetTTagMarkers(req.TTag.Indices, req.TTag.RepeatInterval)
	}
	return b.Build(), nil
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	program, err := buildProgram(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.engine.SetProgram(program); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeStatus(w)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeStatus(w)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	s.writeStatus(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	totals := s.engine.StreamStats()
	out := make(map[string]txengineStreamTotals, len(totals))
	for guid, t := range totals {
		out[strconv.FormatUint(uint64(guid), 10)] = txengineStreamTotals{TxPkts: t.TxPkts, TxBytes: t.TxBytes}
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.WithError(err).Error("control: encode stream-stats response")
	}
}

// txengineStreamTotals mirrors txengine.StreamTotals with JSON tags; kept
// separate so the wire shape doesn't silently change if the engine's
// internal field names ever do.
type txengineStreamTotals struct {
	TxPkts  uint64 `json:"txPkts"`
	TxBytes uint64 `json:"txBytes"`
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	state := s.engine.State()
	SetEngineState(int32(state))
	resp := statusResponse{
		State:          state.String(),
		LastTxDuration: s.engine.LastTxDuration(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Error("control: encode status response")
	}
}
