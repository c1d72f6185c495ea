package actorloop

import "sync/atomic"

// LoopState represents the current state of a Loop's control.
//
// State Machine:
//
//	Idle (0)    -> Serving (1)   [a dispatch op acquires control]
//	Serving (1) -> Idle (0)      [the dispatch op releases control]
//	Idle (0)    -> Shut (2)      [Shutdown]
//	Serving (1) -> Shut (2)      [Shutdown, observed by the releasing op]
//	Shut (2)    -> (terminal)
//
// There is no Sleeping/Terminating distinction: a Box has no I/O reactor to
// block in, so these three states are the whole machine.
type LoopState uint32

const (
	// Idle indicates no dispatch op currently holds control.
	Idle LoopState = iota
	// Serving indicates a dispatch op is executing a handler under the lock.
	Serving
	// Shut is terminal: the Loop accepts no further dispatch ops.
	Shut
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Serving:
		return "Serving"
	case Shut:
		return "Shut"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free CAS state machine for LoopState.
type fastState struct {
	v atomic.Uint32
}

func newFastState() *fastState {
	return &fastState{}
}

// Load returns the current state atomically.
func (s *fastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation. Used
// only for the Shut transition, which is valid from any prior state.
func (s *fastState) Store(state LoopState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically move from one state to another,
// reporting whether it succeeded.
func (s *fastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsShut reports whether the state has reached its terminal value.
func (s *fastState) IsShut() bool {
	return s.Load() == Shut
}
