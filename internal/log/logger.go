package log

// Logger is the narrow logging surface used across txprogram, txengine,
// control and cmd/txgend instead of calling a concrete logrus.Logger
// directly, so packages stay decoupled from the backing implementation.
type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
}

// Fields is a set of key/value pairs attached to a log entry.
type Fields map[string]interface{}
