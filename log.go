package simnet

import apexlog "github.com/apex/log"

// Logger is the logging interface used throughout simnet. Components never
// depend on a concrete logging backend; they depend on this interface.
type Logger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)

	// Debug emits a debug message.
	Debug(message string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Info emits an informational message.
	Info(message string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)

	// Warn emits a warning message.
	Warn(message string)
}

// NullLogger is a [Logger] that discards everything.
type NullLogger struct{}

func (*NullLogger) Debug(message string)          {}
func (*NullLogger) Debugf(format string, v ...any) {}
func (*NullLogger) Info(message string)            {}
func (*NullLogger) Infof(format string, v ...any)  {}
func (*NullLogger) Warn(message string)            {}
func (*NullLogger) Warnf(format string, v ...any)  {}

var _ Logger = &NullLogger{}

// ApexLogger adapts an [apexlog.Interface] to [Logger]. Use
// [NewApexLogger] with [apexlog.Log] (the package-level default logger)
// to reproduce the teacher's plain `apex/log` wiring.
type ApexLogger struct {
	entry apexlog.Interface
}

// NewApexLogger builds an [ApexLogger] wrapping the given entry.
func NewApexLogger(entry apexlog.Interface) *ApexLogger {
	return &ApexLogger{entry: entry}
}

func (l *ApexLogger) Debug(message string)          { l.entry.Debug(message) }
func (l *ApexLogger) Debugf(format string, v ...any) { l.entry.Debugf(format, v...) }
func (l *ApexLogger) Info(message string)            { l.entry.Info(message) }
func (l *ApexLogger) Infof(format string, v ...any)  { l.entry.Infof(format, v...) }
func (l *ApexLogger) Warn(message string)            { l.entry.Warn(message) }
func (l *ApexLogger) Warnf(format string, v ...any)  { l.entry.Warnf(format, v...) }

var _ Logger = &ApexLogger{}
