// Package txengine implements the run loop: given a built Program, a
// PacketSink, a clock.Delay and a stats.Ledger, it walks the program's
// sequence groups honoring their timing and repeat structure, stamps
// T-Tag-eligible packets in flight, and attributes the observed
// transmitted-packet delta to per-stream tallies once it stops.
package txengine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/l2dy/ostinato/internal/clock"
	"github.com/l2dy/ostinato/internal/log"
	"github.com/l2dy/ostinato/internal/stats"
	"github.com/l2dy/ostinato/internal/ttag"
	"github.com/l2dy/ostinato/internal/txprogram"
)

// State is the engine's lifecycle stage.
type State int32

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// fastPathMaxUsecDuration bounds how long a sequence's programmed
// duration may be for the batched fast path to consider it: past this,
// the savings from skipping per-packet timing stop mattering.
const fastPathMaxUsecDuration = 1_000_000

// StreamTotals is one stream's cumulative packet/byte contribution,
// attributed after a run completes.
type StreamTotals struct {
	TxPkts  uint64
	TxBytes uint64
}

// Engine is the transmit scheduler. One Engine owns one PacketSink for its
// lifetime and one run loop goroutine at a time.
type Engine struct {
	log    log.Logger
	sink   PacketSink
	delay  clock.Delay
	ledger *stats.Ledger

	mu      sync.RWMutex
	program *txprogram.Program

	state         atomic.Int32
	stopRequested atomic.Bool

	lastStats      stats.Snapshot
	lastTxDuration atomic.Int64 // microseconds

	streamMu    sync.Mutex
	streamStats map[uint32]StreamTotals

	runMu sync.Mutex // serializes Start/run-goroutine bookkeeping
	done  chan struct{}
}

// NewEngine constructs an Engine around sink, using delay's accuracy mode
// and reporting into ledger. logger may be nil, in which case a default
// logrus-backed Logger is used.
func NewEngine(sink PacketSink, delay clock.Delay, ledger *stats.Ledger, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.New()
	}
	return &Engine{
		log:    logger,
		sink:   sink,
		delay:  delay,
		ledger: ledger,
	}
}

// SetProgram installs p as the program to run. It is rejected while
// Running; the Program is mutated only when the engine is not running.
func (e *Engine) SetProgram(p *txprogram.Program) error {
	if e.IsRunning() {
		return fmt.Errorf("%w: cannot set program while running", ErrMisconfiguration)
	}
	e.mu.Lock()
	e.program = p
	e.mu.Unlock()
	return nil
}

// ClearProgram drops the installed program. Rejected while Running.
func (e *Engine) ClearProgram() error {
	return e.SetProgram(nil)
}

// State returns the engine's current lifecycle stage.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// IsRunning reports whether the run loop is currently active.
func (e *Engine) IsRunning() bool {
	return e.State() == Running
}

// LastTxDuration returns the most recently completed run's wall-clock
// duration in seconds.
func (e *Engine) LastTxDuration() float64 {
	return float64(e.lastTxDuration.Load()) / 1e6
}

// StreamStats returns a copy of the per-stream tallies attributed by the
// most recent run(s) since the last ClearStreamStats.
func (e *Engine) StreamStats() map[uint32]StreamTotals {
	e.streamMu.Lock()
	defer e.streamMu.Unlock()
	out := make(map[uint32]StreamTotals, len(e.streamStats))
	for k, v := range e.streamStats {
		out[k] = v
	}
	return out
}

// ClearStreamStats resets the per-stream tallies to empty.
func (e *Engine) ClearStreamStats() {
	e.streamMu.Lock()
	e.streamStats = nil
	e.streamMu.Unlock()
}

// Start begins a run in a new goroutine. It is rejected if already
// Running or if no program is installed; re-starting after Finished is
// allowed.
func (e *Engine) Start() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	prev := NotStarted
	if !e.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		if !e.state.CompareAndSwap(int32(Finished), int32(Running)) {
			return fmt.Errorf("%w: engine already running", ErrMisconfiguration)
		}
		prev = Finished
	}

	e.mu.RLock()
	program := e.program
	e.mu.RUnlock()
	if program == nil {
		e.state.Store(int32(prev))
		return fmt.Errorf("%w: no program installed", ErrMisconfiguration)
	}

	e.stopRequested.Store(false)
	e.lastStats = e.ledger.Snapshot()

	done := make(chan struct{})
	e.done = done

	go e.run(program, done)
	return nil
}

// Stop requests cancellation and blocks until the run loop reaches
// Finished. A no-op if the engine was never started.
func (e *Engine) Stop() {
	e.stopRequested.Store(true)
	e.runMu.Lock()
	done := e.done
	e.runMu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) run(program *txprogram.Program, done chan struct{}) {
	defer close(done)

	stamper := ttag.NewStamper(e.ledger.Snapshot().Pkts, program.FirstTTagPkt, program.TTagDeltaMarkers)

	var overhead int64
	i := 0
	start := clock.Now()
	var runErr error

outer:
	for {
		for i < len(program.Sequences) {
			head := program.Sequences[i]
			rptSz := head.RepeatSize()
			rptCnt := head.RepeatCount()

			for j := int64(0); j < rptCnt; j++ {
				for k := 0; k < rptSz; k++ {
					seq := program.Sequences[i+k]

					var err error
					overhead, err = e.sendOneSequence(seq, stamper, program.HasTTag(), overhead)
					if err != nil {
						runErr = err
						break outer
					}

					overhead = e.applyDelay(seq.UsecDelay() + overhead)
					if e.stopRequested.Load() {
						break outer
					}
				}
			}
			i += rptSz
		}

		if !program.Loops() {
			break
		}
		overhead = e.applyDelay(program.LoopDelayUsec + overhead)
		if e.stopRequested.Load() {
			break
		}
		i = program.ReturnToIndex
	}

	if runErr != nil && !errors.Is(runErr, ErrCancelled) {
		e.log.WithError(runErr).Warn("txengine: run aborted")
	}

	e.lastTxDuration.Store(clock.DiffUsec(start, clock.Now()))
	e.updateTxStreamStats(program)
	// Cleared unconditionally on every transition out of Running,
	// regardless of whether this run ended normally, via stop, or via
	// error.
	e.stopRequested.Store(false)
	e.state.Store(int32(Finished))
}

// applyDelay applies the overhead-aware delay policy: sleeps for usecs if
// positive and returns the reset (zero) overhead, else returns usecs
// itself as the new (still non-positive) overhead debt.
func (e *Engine) applyDelay(usecs int64) int64 {
	if usecs > 0 {
		e.delay.Sleep(usecs)
		return 0
	}
	return usecs
}

// sendOneSequence dispatches to the batched fast path when the sink
// supports it, the sequence is short and not T-Tag-eligible, and the
// program has no T-Tag markers (ttagActive false); otherwise it falls back
// to the per-packet path, which is the only path that ever stamps.
func (e *Engine) sendOneSequence(seq *txprogram.PacketSequence, stamper *ttag.Stamper, ttagActive bool, overhead int64) (int64, error) {
	if batch, ok := e.sink.(BatchSink); ok &&
		seq.UsecDuration() <= fastPathMaxUsecDuration &&
		!seq.IsTTagEligible() && !ttagActive {
		return e.sendSequenceFast(batch, seq, overhead)
	}
	return e.sendSequence(seq, stamper, overhead)
}

func (e *Engine) sendSequenceFast(batch BatchSink, seq *txprogram.PacketSequence, overhead int64) (int64, error) {
	start := clock.Now()
	if _, err := batch.SendQueue(seq.RawBuffer(), true); err != nil {
		return overhead, fmt.Errorf("%w: %v", ErrSinkIO, err)
	}
	e.ledger.Add(seq.Packets(), seq.Bytes())
	elapsed := clock.DiffUsec(start, clock.Now())
	overhead += seq.UsecDuration() - elapsed
	return overhead, nil
}

// sendSequence iterates the sequence's records in order, stamping due
// packets, applying the overhead-aware per-record delay, sinking the
// packet, and restoring any stamp, returning ErrCancelled if stop was
// requested mid-sequence.
func (e *Engine) sendSequence(seq *txprogram.PacketSequence, stamper *ttag.Stamper, overhead int64) (int64, error) {
	ts, ok := seq.FirstHeader()
	if !ok {
		return overhead, nil
	}
	overheadStart := clock.Now()

	var sendErr error
	seq.ForEach(func(offset int, hdr txprogram.RecordHeader, payload []byte) bool {
		globalPkts := e.ledger.Snapshot().Pkts
		due := stamper.Due(globalPkts)

		var origCksum uint16
		if due {
			origCksum = stamper.Stamp(payload, seq.TTagL4CksumOffset())
		}

		usec := recordGapUsec(ts, hdr)
		elapsed := clock.DiffUsec(overheadStart, clock.Now())
		overhead -= elapsed
		usec += overhead
		overhead = e.applyDelay(usec)

		ts = hdr
		overheadStart = clock.Now()

		if err := e.sink.SendPacket(payload, int(hdr.CapturedLen)); err != nil {
			sendErr = fmt.Errorf("%w: %v", ErrSinkIO, err)
			return false
		}
		e.ledger.Add(1, uint64(hdr.CapturedLen))

		if due {
			stamper.Restore(payload, origCksum, seq.TTagL4CksumOffset())
			stamper.Advance()
		}

		if e.stopRequested.Load() {
			sendErr = ErrCancelled
			return false
		}
		return true
	})

	return overhead, sendErr
}

func recordGapUsec(prev, cur txprogram.RecordHeader) int64 {
	return (cur.TsSec-prev.TsSec)*1_000_000 + (cur.TsUsec - prev.TsUsec)
}
