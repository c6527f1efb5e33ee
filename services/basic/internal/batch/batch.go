// Package batch runs one streaming background call: it fans a batch of
// simulated work units out to concurrent goroutines, folds their
// outcomes back in arrival order, and emits a sequential stream of
// progress envelopes to a sink.
package batch

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"basicd/services/basic/internal/simulate"
)

// Phase of a batch within its snapshot stream.
type Phase string

const (
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseComplete   Phase = "COMPLETE"
)

// KindError marks a synthetic result entry folded in for a failed unit.
const KindError = "error"

const errorEntryName = "background-error"

// State is the progress view of one batch. It is owned by the
// coordinating goroutine; snapshots hand out deep copies.
type State struct {
	Phase       Phase             `json:"phase"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Results     []simulate.Result `json:"results"`
}

func newState(now time.Time) *State {
	return &State{
		Phase:     PhaseInProgress,
		StartedAt: now,
		Results:   []simulate.Result{},
	}
}

// snapshot returns an immutable copy safe to emit while the batch keeps
// appending.
func (s *State) snapshot() State {
	copied := *s
	copied.Results = slices.Clone(s.Results)
	return copied
}

func (s *State) complete(now time.Time) {
	s.Phase = PhaseComplete
	s.CompletedAt = &now
}

// errorResult converts a unit failure into a synthetic result entry so
// the batch still reaches its full size.
func errorResult(err error) simulate.Result {
	return simulate.Result{
		ID:      uuid.NewString(),
		Name:    errorEntryName,
		Version: simulate.ResultVersion,
		Value:   err.Error(),
		Kind:    KindError,
	}
}
