// Package simulate performs one simulated backend call per work unit:
// a randomized delay followed by a result or an injected fault. The
// randomness source is supplied by the caller so behaviour is seedable
// in tests.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResultVersion is stamped on every simulated result.
const ResultVersion = "v1"

// KindProtocol marks a successful simulated call; the value records the
// protocol variant that was exercised.
const KindProtocol = "protocol"

// Result is one completed simulated call, immutable once produced.
type Result struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Value   string `json:"value"`
	Kind    string `json:"kind"`
}

// Simulator produces simulated backend calls according to a Profile.
// Safe for concurrent use.
type Simulator struct {
	profile Profile

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Simulator backed by the given randomness source.
func New(profile Profile, rng *rand.Rand) (*Simulator, error) {
	if rng == nil {
		return nil, errors.New("rng is required")
	}
	if err := profile.validate(); err != nil {
		return nil, err
	}
	return &Simulator{profile: profile, rng: rng}, nil
}

// Variant picks a protocol variant at random from the profile's set.
func (s *Simulator) Variant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Variants[s.rng.Intn(len(s.profile.Variants))]
}

// Call simulates one backend call named name over the given variant.
// It sleeps for a delay sampled uniformly from the profile's bounds,
// then returns a Result, or an error when the profile's failure rate
// fires. Cancelling ctx aborts the sleep and returns the ctx error.
func (s *Simulator) Call(ctx context.Context, name, variant string) (Result, error) {
	delay, fail := s.sample()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if fail {
		return Result{}, fmt.Errorf("simulated %s call %s failed", variant, name)
	}

	return Result{
		ID:      uuid.NewString(),
		Name:    name,
		Version: ResultVersion,
		Value:   variant,
		Kind:    KindProtocol,
	}, nil
}

func (s *Simulator) sample() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := s.profile.MinDelay
	if span := s.profile.MaxDelay - s.profile.MinDelay; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span) + 1))
	}

	fail := s.profile.FailureRate > 0 && s.rng.Float64() < s.profile.FailureRate
	return delay, fail
}
