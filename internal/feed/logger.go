package feed

import (
	"log"
	"strings"
)

// Logger is injected into long-lived feed components.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debugf(format string, v ...any) {}
func (NoOpLogger) Infof(format string, v ...any)  {}
func (NoOpLogger) Warnf(format string, v ...any)  {}
func (NoOpLogger) Errorf(format string, v ...any) {}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a case-insensitive level name to a Level, defaulting to
// info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger writes leveled lines through a *log.Logger.
type StdLogger struct {
	level Level
	out   *log.Logger
}

// NewStdLogger logs through out, or the standard logger when out is nil.
func NewStdLogger(level string, out *log.Logger) *StdLogger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{level: ParseLevel(level), out: out}
}

func (l *StdLogger) logf(level Level, format string, v ...any) {
	if level < l.level {
		return
	}
	l.out.Printf("["+strings.ToUpper(level.String())+"] "+format, v...)
}

func (l *StdLogger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *StdLogger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *StdLogger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *StdLogger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }
