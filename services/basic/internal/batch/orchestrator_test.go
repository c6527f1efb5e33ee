package batch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"basicd/pkg/event"
	"basicd/services/basic/internal/simulate"
)

func newTestOrchestrator(t *testing.T, failureRate float64, minDelay, maxDelay time.Duration) *Orchestrator {
	t.Helper()

	profile := simulate.DefaultProfile()
	profile.MinDelay = minDelay
	profile.MaxDelay = maxDelay
	profile.FailureRate = failureRate

	sim, err := simulate.New(profile, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	orch, err := NewOrchestrator(sim, zerolog.Nop())
	require.NoError(t, err)
	return orch
}

type recordSink struct {
	mu   sync.Mutex
	envs []event.Envelope
}

func (s *recordSink) Send(_ context.Context, env event.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return nil
}

func (s *recordSink) snapshots(t *testing.T) []State {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]State, 0, len(s.envs))
	for _, env := range s.envs {
		st, ok := env.Payload.(State)
		require.True(t, ok, "payload should be a batch State")
		states = append(states, st)
	}
	return states
}

func TestRunAllUnitsSucceed(t *testing.T) {
	orch := newTestOrchestrator(t, 0, time.Millisecond, 5*time.Millisecond)
	sink := &recordSink{}

	require.NoError(t, orch.Run(context.Background(), 3, sink))

	states := sink.snapshots(t)
	require.Len(t, states, 5, "1 initial + 3 progress + 1 terminal")

	require.Equal(t, PhaseInProgress, states[0].Phase)
	require.Empty(t, states[0].Results)

	for i, st := range states {
		require.Len(t, st.Results, min(i, 3), "results grow by one per snapshot")
		if i < len(states)-1 {
			require.Equal(t, PhaseInProgress, st.Phase)
			require.Nil(t, st.CompletedAt)
		}
	}

	final := states[len(states)-1]
	require.Equal(t, PhaseComplete, final.Phase)
	require.NotNil(t, final.CompletedAt)
	require.False(t, final.CompletedAt.Before(final.StartedAt))
	for _, res := range final.Results {
		require.Equal(t, simulate.KindProtocol, res.Kind)
		require.Equal(t, simulate.ResultVersion, res.Version)
	}

	for _, env := range sink.envs {
		require.Equal(t, event.SourceBackground, env.Source)
		require.Equal(t, event.SpecVersionBackground, env.SpecVersion)
		require.Equal(t, event.TypeBackground, env.Type)
	}
}

func TestRunUnitFailureIsFoldedIn(t *testing.T) {
	orch := newTestOrchestrator(t, 1, time.Millisecond, 2*time.Millisecond)
	sink := &recordSink{}

	require.NoError(t, orch.Run(context.Background(), 1, sink), "unit failure must not surface as a call error")

	states := sink.snapshots(t)
	require.Len(t, states, 3)

	final := states[len(states)-1]
	require.Equal(t, PhaseComplete, final.Phase)
	require.Len(t, final.Results, 1)
	require.Equal(t, KindError, final.Results[0].Kind)
	require.Equal(t, errorEntryName, final.Results[0].Name)
	require.NotEmpty(t, final.Results[0].Value)
}

func TestRunNormalizesProcessCount(t *testing.T) {
	for _, processes := range []int{0, -5} {
		orch := newTestOrchestrator(t, 0, time.Millisecond, 2*time.Millisecond)
		sink := &recordSink{}

		require.NoError(t, orch.Run(context.Background(), processes, sink))

		states := sink.snapshots(t)
		require.Len(t, states, 3, "processes=%d behaves like processes=1", processes)
		require.Len(t, states[len(states)-1].Results, 1)
	}
}

type failAfterSink struct {
	recordSink
	failOn int
	err    error
}

func (s *failAfterSink) Send(ctx context.Context, env event.Envelope) error {
	s.mu.Lock()
	sent := len(s.envs)
	s.mu.Unlock()
	if sent+1 >= s.failOn {
		return s.err
	}
	return s.recordSink.Send(ctx, env)
}

func TestRunSinkFailurePropagates(t *testing.T) {
	orch := newTestOrchestrator(t, 0, time.Millisecond, 2*time.Millisecond)
	transportErr := errors.New("connection reset")
	sink := &failAfterSink{failOn: 2, err: transportErr}

	err := orch.Run(context.Background(), 3, sink)
	require.ErrorIs(t, err, transportErr)

	for _, st := range sink.snapshots(t) {
		require.NotEqual(t, PhaseComplete, st.Phase, "no terminal snapshot after transport failure")
	}
}

type cancelAfterSink struct {
	recordSink
	cancel context.CancelFunc
}

func (s *cancelAfterSink) Send(ctx context.Context, env event.Envelope) error {
	err := s.recordSink.Send(ctx, env)
	s.cancel()
	return err
}

func TestRunCancellationStopsEmission(t *testing.T) {
	// Units take 5s, so any prompt return proves they were abandoned
	// rather than waited for.
	orch := newTestOrchestrator(t, 0, 5*time.Second, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancelAfterSink{cancel: cancel}

	start := time.Now()
	err := orch.Run(ctx, 3, sink)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)

	states := sink.snapshots(t)
	require.Len(t, states, 1, "no snapshots after the cancellation point")
	require.Equal(t, PhaseInProgress, states[0].Phase)
}

func TestRunNilSink(t *testing.T) {
	orch := newTestOrchestrator(t, 0, time.Millisecond, 2*time.Millisecond)
	require.Error(t, orch.Run(context.Background(), 1, nil))
}

func TestNewOrchestratorRequiresSimulator(t *testing.T) {
	_, err := NewOrchestrator(nil, zerolog.Nop())
	require.Error(t, err)
}
