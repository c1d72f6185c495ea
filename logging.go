package actorloop

import (
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the diagnostic sink a Loop uses for the two situations it has
// nowhere else to report to: an async handler's returned error (no caller is
// left to receive it) and the guard_time diagnostic. It is a thin,
// fixed-event-type facade over logiface.Logger so call sites never need to
// mention the generic Event parameter.
//
// The zero value is a no-op Logger; NewDefaultLogger is the configured
// default used when NewLoop isn't given WithLogger.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewDefaultLogger returns a Logger that writes newline-delimited JSON to
// os.Stderr via stumpy, at LevelWarning and above.
func NewDefaultLogger() Logger {
	return NewLogger(stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		logiface.WithLevel[*stumpy.Event](logiface.LevelWarning),
	))
}

// NewLogger wraps an existing logiface.Logger[*stumpy.Event], for callers
// who already maintain one and want a Box's diagnostics folded into it.
func NewLogger(l *logiface.Logger[*stumpy.Event]) Logger {
	return Logger{l: l}
}

// Err logs cause at error level, tagging it with the Loop name and call name
// that produced it. It backs Loop.finishAsync's handling of an async_call
// handler's returned error.
func (lg Logger) Err(loopName, call string, cause error) {
	if lg.l == nil {
		return
	}
	lg.l.Err().Err(cause).Str("loop", loopName).Str("call", call).Log("async handler returned an error")
}

// Warn logs msg at warning level, tagging it with the Loop name and call
// name. It backs the guard_time diagnostic (see guard.go).
func (lg Logger) Warn(loopName, call string, msg string) {
	if lg.l == nil {
		return
	}
	lg.l.Warning().Str("loop", loopName).Str("call", call).Log(msg)
}
