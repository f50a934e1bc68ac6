package txengine

import "errors"

// Sentinel error kinds, wrapped with %w at the call site so callers can
// errors.Is/errors.As against them.
var (
	// ErrDeviceOpenFailed: the I/O handle could not be acquired at
	// construction; reported once, the engine is left inert.
	ErrDeviceOpenFailed = errors.New("txengine: device open failed")
	// ErrSinkIO: the sink rejected a packet; the current sequence aborts,
	// the loop exits, counters reflect packets actually sunk.
	ErrSinkIO = errors.New("txengine: sink rejected a packet")
	// ErrCancelled: the user requested stop; post-conditions are
	// identical to a clean finish but possibly mid-sequence.
	ErrCancelled = errors.New("txengine: cancelled")
	// ErrMisconfiguration: starting while already running, or starting
	// with no program installed. Engine state is left unchanged.
	ErrMisconfiguration = errors.New("txengine: misconfiguration")
)
