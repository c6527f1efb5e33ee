package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basicd/pkg/event"
	"basicd/services/basic/internal/simulate"
)

// Sink accepts the envelope stream of one call. Send is invoked
// strictly sequentially; a returned error is treated as a transport
// failure and aborts the batch.
type Sink interface {
	Send(ctx context.Context, env event.Envelope) error
}

// outcome is the tagged completion report of one work unit. Exactly one
// is written to the conduit per unit.
type outcome struct {
	result simulate.Result
	err    error
}

// Orchestrator fans background batches out to a simulator and streams
// progress snapshots to a per-call sink.
type Orchestrator struct {
	sim     *simulate.Simulator
	builder *event.Builder
	log     zerolog.Logger
	tracer  trace.Tracer
}

// NewOrchestrator creates an orchestrator bound to the given simulator.
func NewOrchestrator(sim *simulate.Simulator, log zerolog.Logger) (*Orchestrator, error) {
	if sim == nil {
		return nil, errors.New("simulator is required")
	}
	return &Orchestrator{
		sim:     sim,
		builder: event.NewBuilder(event.SourceBackground, event.SpecVersionBackground),
		log:     log,
		tracer:  otel.Tracer("basicd/batch"),
	}, nil
}

// Run executes one batch of `processes` simulated units (values below 1
// are treated as 1) and streams snapshots to sink: one initial empty
// snapshot, one per drained unit in arrival order, and one terminal
// COMPLETE snapshot once every unit goroutine has been reclaimed.
//
// A unit failure is folded into the results and never aborts the batch.
// Cancellation of ctx stops emission, cancels outstanding units, and
// returns the context cause; a sink error does the same but returns the
// transport error.
func (o *Orchestrator) Run(ctx context.Context, processes int, sink Sink) error {
	if sink == nil {
		return errors.New("sink is required")
	}
	if processes < 1 {
		processes = 1
	}

	ctx, span := o.tracer.Start(ctx, "batch.run",
		trace.WithAttributes(attribute.Int("batch.processes", processes)))
	defer span.End()

	log := o.log.With().Int("processes", processes).Logger()

	sess := NewSession()
	state := newState(time.Now().UTC())

	unitCtx, cancelUnits := context.WithCancel(ctx)
	defer cancelUnits()

	// Buffered to the batch size so a unit never blocks reporting,
	// even after the coordinator has stopped draining.
	outcomes := make(chan outcome, processes)

	var wg sync.WaitGroup
	for i := 1; i <= processes; i++ {
		wg.Add(1)
		go o.runUnit(unitCtx, &wg, outcomes, i)
	}
	batchesStarted.Inc()

	_ = sess.Begin()
	if err := o.emit(ctx, sink, state.snapshot()); err != nil {
		return o.abort(ctx, cancelUnits, sess, log, err)
	}

	for remaining := processes; remaining > 0; remaining-- {
		select {
		case <-ctx.Done():
			return o.abort(ctx, cancelUnits, sess, log, context.Cause(ctx))
		case out := <-outcomes:
			if out.err != nil {
				state.Results = append(state.Results, errorResult(out.err))
				unitsCompleted.WithLabelValues("failure").Inc()
				log.Warn().Err(out.err).Msg("work unit failed")
			} else {
				state.Results = append(state.Results, out.result)
				unitsCompleted.WithLabelValues("success").Inc()
			}
			_ = sess.Progress()
			if err := o.emit(ctx, sink, state.snapshot()); err != nil {
				return o.abort(ctx, cancelUnits, sess, log, err)
			}
		}
	}

	// Cleanup barrier: reclaim every unit goroutine, including ones
	// whose result already arrived, before going terminal.
	wg.Wait()

	state.complete(time.Now().UTC())
	if err := o.emit(ctx, sink, state.snapshot()); err != nil {
		return o.abort(ctx, cancelUnits, sess, log, err)
	}
	_ = sess.Complete()
	batchesFinished.WithLabelValues(string(StateCompleted)).Inc()
	log.Debug().Int("results", len(state.Results)).Msg("background batch complete")
	return nil
}

func (o *Orchestrator) runUnit(ctx context.Context, wg *sync.WaitGroup, outcomes chan<- outcome, id int) {
	defer wg.Done()

	variant := o.sim.Variant()
	name := fmt.Sprintf("service-%d", id)

	ctx, span := o.tracer.Start(ctx, "batch.unit", trace.WithAttributes(
		attribute.String("unit.name", name),
		attribute.String("unit.variant", variant),
	))
	defer span.End()

	start := time.Now()
	res, err := o.sim.Call(ctx, name, variant)
	unitDuration.Observe(time.Since(start).Seconds())

	outcomes <- outcome{result: res, err: err}
}

func (o *Orchestrator) emit(ctx context.Context, sink Sink, st State) error {
	env := o.builder.Build(event.TypeBackground, st)
	if err := sink.Send(ctx, env); err != nil {
		return err
	}
	snapshotsEmitted.Inc()
	return nil
}

// abort tears down outstanding units and resolves the terminal state:
// caller cancellation ends the session silently with the context cause,
// anything else is a transport failure propagated to the caller.
func (o *Orchestrator) abort(ctx context.Context, cancelUnits context.CancelFunc, sess *Session, log zerolog.Logger, err error) error {
	cancelUnits()

	if ctx.Err() != nil {
		_ = sess.Cancel()
		batchesFinished.WithLabelValues(string(StateCancelled)).Inc()
		log.Info().Msg("background stream cancelled by caller")
		return context.Cause(ctx)
	}

	_ = sess.Fail()
	batchesFinished.WithLabelValues(string(StateFailed)).Inc()
	log.Warn().Err(err).Msg("background stream aborted")
	return fmt.Errorf("emit snapshot: %w", err)
}
