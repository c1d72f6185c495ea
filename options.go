// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package actorloop

import "time"

// loopOptions holds configuration resolved from a slice of LoopOption values
// at NewLoop time.
type loopOptions struct {
	name      string
	logger    Logger
	guardTime time.Duration
	pool      ActivityPool
}

// --- Loop Options ---

// LoopOption configures a Loop instance, see NewLoop.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithName sets a human-readable name for the Loop, included in log entries
// and the Stats snapshot. Defaults to "" (unnamed).
func WithName(name string) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.name = name
		return nil
	}}
}

// WithLogger sets the Logger used for diagnostics (async handler errors,
// guard_time warnings). Defaults to NewDefaultLogger().
func WithLogger(logger Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithGuardTime sets the duration a single dispatched call may hold the
// Loop's lock before a rate-limited diagnostic warning is logged. Zero (the
// default) disables the diagnostic.
func WithGuardTime(d time.Duration) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.guardTime = d
		return nil
	}}
}

// WithThreadpool sets the ActivityPool background activities are scheduled
// on. A nil pool (the default) spawns a fresh goroutine per activity.
func WithThreadpool(pool ActivityPool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.pool = pool
		return nil
	}}
}

// resolveOptions applies a slice of LoopOption values over a fresh default
// configuration, skipping nils.
func resolveOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		logger: NewDefaultLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
