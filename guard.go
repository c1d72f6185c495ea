package actorloop

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// guardTimer backs the WithGuardTime option: it emits a diagnostic when any
// single handler holds the loop longer than the configured duration. It arms
// a timer when a call frame opens and, if the frame is still open once the
// duration elapses, logs a warning — rate-limited via catrate so a
// chronically slow handler (or a tight caller loop hammering one) can't
// flood the log with a warning on every single tick.
type guardTimer struct {
	loop    *Loop
	d       time.Duration
	limiter *catrate.Limiter
}

// newGuardTimer constructs a guardTimer for l, firing at most once per
// second regardless of how many frames exceed d concurrently in time.
func newGuardTimer(l *Loop, d time.Duration) *guardTimer {
	return &guardTimer{
		loop: l,
		d:    d,
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
		}),
	}
}

// start arms the guard for the call named name and returns a func to call
// once the frame closes, disarming it. If the timer fires before that, a
// rate-limited warning is logged through the Loop's configured Logger.
func (g *guardTimer) start(name string) func() {
	timer := time.AfterFunc(g.d, func() {
		if _, ok := g.limiter.Allow(g.loop.opts.name); ok {
			g.loop.logger.Warn(g.loop.opts.name, name, "handler is still running past guard_time")
		}
	})
	return func() {
		timer.Stop()
	}
}
