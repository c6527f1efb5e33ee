package batch

import (
	"fmt"
	"sync"
)

// SessionState is the lifecycle state of one streaming call.
type SessionState string

const (
	StateInit      SessionState = "INIT"
	StateStreaming SessionState = "STREAMING"
	StateCompleted SessionState = "COMPLETED"
	StateCancelled SessionState = "CANCELLED"
	StateFailed    SessionState = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SessionState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// Session tracks the state machine of one streaming call:
// INIT -> STREAMING -> {COMPLETED | CANCELLED | FAILED}.
type Session struct {
	mu    sync.Mutex
	state SessionState
}

// NewSession returns a session in INIT.
func NewSession() *Session {
	return &Session{state: StateInit}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin moves INIT to STREAMING.
func (s *Session) Begin() error {
	return s.transition(StateInit, StateStreaming)
}

// Progress records a unit completion; the session stays in STREAMING.
func (s *Session) Progress() error {
	return s.transition(StateStreaming, StateStreaming)
}

// Complete ends the session after the full batch has been drained and
// the terminal snapshot emitted.
func (s *Session) Complete() error {
	return s.transition(StateStreaming, StateCompleted)
}

// Cancel ends the session after the caller withdrew.
func (s *Session) Cancel() error {
	return s.transition(StateStreaming, StateCancelled)
}

// Fail ends the session after a transport error on the sink.
func (s *Session) Fail() error {
	return s.transition(StateStreaming, StateFailed)
}

func (s *Session) transition(from, to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("invalid session transition %s -> %s (current state %s)", from, to, s.state)
	}
	s.state = to
	return nil
}
