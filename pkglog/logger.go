// Package pkglog provides the small structured-logging wrapper shared by
// this module's subsystems: a single struct with a handful of named
// constructors, backed by zerolog so callers get leveled, key/value
// structured lines.
package pkglog

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger. The zero value is not usable; construct
// one with New or Nop.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing structured JSON lines to w.
func New(w io.Writer) *Logger {
	return &Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything, for callers that don't
// want diagnostic output.
func Nop() *Logger {
	return &Logger{z: zerolog.Nop()}
}

// OrNop returns l if non-nil, else a discarding Logger. Subsystem
// constructors use this so a nil *Logger argument is always safe to log
// through.
func OrNop(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return Nop()
}

// Debug logs cache/link/auth decisions: the routine, expected control-flow
// branches this module's subsystems take constantly (a cache hit, a
// successful link mode, a credential cache hit).
func (l *Logger) Debug(msg string, kv ...interface{}) {
	event(l.z.Debug(), kv).Msg(msg)
}

// Warn logs fallback transitions: a link-mode cascade, a netrc parse
// failure treated as absent, a credential discovery miss.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	event(l.z.Warn(), kv).Msg(msg)
}

// Error logs genuine failures a caller should notice.
func (l *Logger) Error(err error, msg string, kv ...interface{}) {
	event(l.z.Error().Err(err), kv).Msg(msg)
}

func event(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		e = e.Interface(key, kv[i+1])
	}
	return e
}
