// Package application orchestrates thought processing: the dispatcher owns
// the closed action-to-handler table, the processor drives one thought
// through evaluation, selection, guardrails, and dispatch.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/veritaslabs/cogito/application/handlers"
	"github.com/veritaslabs/cogito/domain/action"
	"github.com/veritaslabs/cogito/domain/thought"
	"github.com/veritaslabs/cogito/infrastructure/logging"
	"github.com/veritaslabs/cogito/infrastructure/observability"
)

var (
	// ErrUnknownActionKind indicates a decision kind with no mapped handler.
	// Programmer error; the dispatcher fails loud instead of dropping the
	// thought.
	ErrUnknownActionKind = errors.New("unknown action kind")

	// ErrShuttingDown indicates a dispatch was refused because shutdown has
	// been requested.
	ErrShuttingDown = errors.New("dispatcher is shutting down")
)

// Dispatcher maps each action kind to its handler and invokes it,
// recording telemetry per dispatch. After shutdown is requested it refuses
// new dispatches but lets in-flight ones finish.
type Dispatcher struct {
	table       map[action.Type]handlers.Handler
	tracer      trace.Tracer
	instruments *observability.Instruments

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTracer sets the tracer used for per-dispatch spans.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithInstruments sets the metric instruments recorded per dispatch.
func WithInstruments(inst *observability.Instruments) DispatcherOption {
	return func(d *Dispatcher) {
		d.instruments = inst
	}
}

// NewDispatcher builds the dispatch table from the given handlers.
func NewDispatcher(hs []handlers.Handler, opts ...DispatcherOption) (*Dispatcher, error) {
	table := make(map[action.Type]handlers.Handler, len(hs))
	for _, h := range hs {
		if _, dup := table[h.Kind()]; dup {
			return nil, fmt.Errorf("duplicate handler for action %s", h.Kind())
		}
		table[h.Kind()] = h
	}

	d := &Dispatcher{
		table:  table,
		tracer: tnoop.NewTracerProvider().Tracer("cogito"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch looks up the handler for the selected action and invokes it. It
// returns the follow-up thought id the handler created, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, result *action.SelectionResult, th *thought.Thought, dc action.DispatchContext) (string, error) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return "", ErrShuttingDown
	}
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	h, ok := d.table[result.SelectedAction]
	if !ok {
		logging.Error().
			Add(logging.Action(result.SelectedAction)).
			Add(logging.ThoughtID(th.ID)).
			Msg("no handler mapped for action")
		return "", fmt.Errorf("%w: %s", ErrUnknownActionKind, result.SelectedAction)
	}

	dc.Action = result.SelectedAction
	dc.HandlerName = string(result.SelectedAction) + "_handler"

	ctx, span := observability.StartDispatchSpan(ctx, d.tracer, string(result.SelectedAction), th.ID)
	defer span.End()

	start := time.Now()
	followUpID, err := h.Handle(ctx, result, th, dc)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	d.instruments.RecordDispatch(ctx, string(result.SelectedAction), elapsed.Seconds(), err == nil)

	logging.Debug().
		Add(logging.Action(result.SelectedAction)).
		Add(logging.ThoughtID(th.ID)).
		Add(logging.Duration(elapsed)).
		Add(logging.ErrorField(err)).
		Msg("dispatched action")
	return followUpID, err
}

// Shutdown refuses new dispatches and waits for in-flight ones to finish
// or the context to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.draining = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
