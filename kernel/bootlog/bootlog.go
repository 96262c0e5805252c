// Package bootlog formats kernel log lines as "[target] [LEVEL] message",
// the line format the serial debug console expects. It is a thin
// convenience layer over kernel/kfmt: all output still goes through
// kfmt.Printf, so it is safe to use before the heap or any TTY exists.
package bootlog

import "nocciolo/kernel/kfmt"

// Level is the severity of a logged event.
type Level uint8

const (
	// LevelInfo records routine boot progress.
	LevelInfo Level = iota
	// LevelWarn records a recoverable-at-boot condition: something is
	// missing or failed but the kernel falls back and continues.
	LevelWarn
	// LevelError records a failure that is reported but does not itself
	// halt the kernel (the caller decides whether to panic).
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger tags every line it emits with a fixed target name, e.g. the
// package or subsystem producing it.
type Logger struct {
	Target string
}

// New returns a Logger tagged with target.
func New(target string) Logger {
	return Logger{Target: target}
}

// Log emits one "[target] [LEVEL] message" line via kfmt.Printf.
func (l Logger) Log(level Level, format string, args ...interface{}) {
	kfmt.Printf("["+l.Target+"] ["+level.String()+"] "+format+"\n", args...)
}

// Info logs at LevelInfo.
func (l Logger) Info(format string, args ...interface{}) { l.Log(LevelInfo, format, args...) }

// Warn logs at LevelWarn.
func (l Logger) Warn(format string, args ...interface{}) { l.Log(LevelWarn, format, args...) }

// Error logs at LevelError.
func (l Logger) Error(format string, args ...interface{}) { l.Log(LevelError, format, args...) }
