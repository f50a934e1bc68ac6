package log

import "github.com/sirupsen/logrus"

var base = logrus.New()

type logrusLogger struct {
	entry logrus.Ext1FieldLogger
}

// New returns the package's default Logger, backed by a shared
// *logrus.Logger so every caller's output goes through one formatter.
func New() Logger {
	return &logrusLogger{entry: base}
}

// SetLevel adjusts the shared logrus.Logger's level for every Logger
// returned by New.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

func (l *logrusLogger) Trace(args ...interface{}) { l.entry.Trace(args...) }
func (l *logrusLogger) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}
