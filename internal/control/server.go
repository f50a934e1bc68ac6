// Package control exposes the engine's lifecycle over HTTP: a thin
// gorilla/mux adapter that never becomes a second source of truth for
// engine state, grounded in the teacher pack's CoreSimulatorApp server.
package control

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/l2dy/ostinato/internal/log"
	"github.com/l2dy/ostinato/internal/stats"
	"github.com/l2dy/ostinato/internal/txengine"
	"github.com/l2dy/ostinato/internal/txprogram"
)

// Server wraps one Engine and one Ledger behind the txengine/v1 HTTP API.
type Server struct {
	log    log.Logger
	engine Controller
	ledger *stats.Ledger
	http   *http.Server
}

// Controller is the subset of *txengine.Engine the control surface needs;
// an interface so handlers can be exercised against a fake in tests
// without a real Engine goroutine.
type Controller interface {
	SetProgram(p *txprogram.Program) error
	Start() error
	Stop()
	State() txengine.State
	LastTxDuration() float64
	StreamStats() map[uint32]txengine.StreamTotals
}

// NewServer builds a Server listening on addr and routing requests to
// engine. The Server keeps ledger but does not read it; the /metrics
// counters change only through a LedgerObserver registered on the ledger.
func NewServer(addr string, engine Controller, ledger *stats.Ledger, logger log.Logger) *Server {
	if logger == nil {
		logger = log.New()
	}
	s := &Server{log: logger, engine: engine, ledger: ledger}

	router := mux.NewRouter()
	router.HandleFunc("/txengine/v1/configure", s.handleConfigure).Methods(http.MethodPost)
	router.HandleFunc("/txengine/v1/start", s.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/txengine/v1/stop", s.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/txengine/v1/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/txengine/v1/stream-stats", s.handleStreamStats).Methods(http.MethodGet)
	router.Handle("/metrics", MetricsHandler())

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start serves in a background goroutine, mirroring the teacher's
// fire-and-forget ListenAndServe pattern: ErrServerClosed is the
// expected outcome of a graceful Close, anything else is fatal to log.
func (s *Server) Start() {
	go func() {
		s.log.Infof("control: serving txengine api on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("control: listen and serve failed")
		}
	}()
}

// Stop gracefully closes the HTTP listener.
func (s *Server) Stop() error {
	if err := s.http.Close(); err != nil {
		return fmt.Errorf("control: close: %w", err)
	}
	return nil
}
