package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"basicd/pkg/bus"
	"basicd/pkg/event"
	"basicd/services/basic/internal/batch"
)

var mirrorFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "basicd_bus_publish_failures_total",
	Help: "Envelope mirror publishes that failed.",
})

// handleBackground runs one background batch and streams its envelopes
// to the caller as NDJSON, one envelope per line, flushed per emission.
func (a *API) handleBackground(w http.ResponseWriter, r *http.Request) {
	processes, err := a.parseProcesses(r.URL.Query().Get("processes"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var sink batch.Sink = &streamSink{enc: json.NewEncoder(w), flusher: flusher}
	if a.bus != nil {
		sink = &mirrorSink{next: sink, bus: a.bus, log: a.log}
	}

	err = a.orch.Run(r.Context(), processes, sink)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Caller withdrew; the stream just ends.
		a.log.Debug().Msg("background stream closed by caller")
	default:
		a.log.Error().Err(err).Msg("background stream failed")
	}
}

// parseProcesses reads the requested unit count. Missing or
// non-positive values fall back to 1; values above the configured cap
// are clamped; non-integers are rejected.
func (a *API) parseProcesses(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid processes value %q", raw)
	}
	if n > a.maxProcesses {
		n = a.maxProcesses
	}
	return n, nil
}

// streamSink writes each envelope as one NDJSON line and flushes so
// the caller observes progress incrementally.
type streamSink struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func (s *streamSink) Send(_ context.Context, env event.Envelope) error {
	if err := s.enc.Encode(env); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// mirrorSink forwards to the caller first, then mirrors the envelope to
// NATS best-effort: a publish failure is counted and logged, never
// treated as a transport failure of the stream.
type mirrorSink struct {
	next batch.Sink
	bus  *bus.Bus
	log  zerolog.Logger
}

func (s *mirrorSink) Send(ctx context.Context, env event.Envelope) error {
	if err := s.next.Send(ctx, env); err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, bus.SubjectBackground, env); err != nil {
		mirrorFailures.Inc()
		s.log.Warn().Err(err).Msg("mirror envelope to bus")
	}
	return nil
}
