// Package react fans out committed state transitions to independent
// reactions.
//
// Dispatch is a broadcast, not a pipeline: observers are invoked in
// descending priority order and no observer's output feeds another's input.
// A failing or panicking observer is logged and skipped; the remaining
// observers always run.
package react

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/fusion"
)

// Observer reacts to one committed state transition.
type Observer interface {
	// Name identifies the observer in logs.
	Name() string

	// Priority orders dispatch; higher runs first.
	Priority() int

	// OnTransition handles the event. Errors are logged by the
	// dispatcher, never propagated.
	OnTransition(ctx context.Context, ev *fusion.TransitionEvent) error
}

// Dispatcher holds observers sorted by descending priority.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *slog.Logger
	metrics   *observe.Metrics
}

// NewDispatcher creates a dispatcher. A nil logger falls back to the default.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger.With("component", "react.dispatcher")}
}

// SetMetrics enables observer failure counting. Optional.
func (d *Dispatcher) SetMetrics(m *observe.Metrics) {
	d.metrics = m
}

// Register adds an observer, keeping the priority order. Registration order
// breaks priority ties.
func (d *Dispatcher) Register(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
	sort.SliceStable(d.observers, func(i, j int) bool {
		return d.observers[i].Priority() > d.observers[j].Priority()
	})
}

// Notify invokes every observer in priority order. Each observer is isolated:
// an error or panic is logged and the rest still run.
func (d *Dispatcher) Notify(ctx context.Context, ev *fusion.TransitionEvent) {
	d.mu.RLock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, o := range observers {
		d.dispatchOne(ctx, o, ev)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, o Observer, ev *fusion.TransitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer panicked",
				"observer", o.Name(),
				"panic", r,
			)
			d.countFailure(ctx, o)
		}
	}()

	if err := o.OnTransition(ctx, ev); err != nil {
		d.logger.Error("observer failed",
			"observer", o.Name(),
			"transition", ev.Old.String()+"->"+ev.New.String(),
			"error", err,
		)
		d.countFailure(ctx, o)
	}
}

func (d *Dispatcher) countFailure(ctx context.Context, o Observer) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserverErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("observer", o.Name())),
	)
}

// Len returns the number of registered observers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}
