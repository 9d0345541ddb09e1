// Package engine runs the presence fusion loop: ingest classifier detections,
// flush windows on a fixed tick, debounce the raw state, and fan committed
// transitions out to observers.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/audiofeat"
	"github.com/purrlab/go-whisker/pkg/emotion"
	"github.com/purrlab/go-whisker/pkg/fusion"
	"github.com/purrlab/go-whisker/pkg/react"
	"github.com/purrlab/go-whisker/pkg/trust"
)

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	State       string    `json:"state"`
	Ticks       uint64    `json:"ticks"`
	Transitions uint64    `json:"transitions"`
	Detections  uint64    `json:"detections"`
	LastFlush   time.Time `json:"last_flush"`
}

// Engine owns the full detection-to-reaction pipeline.
//
// Ingest methods are safe to call from any goroutine at any rate; Tick is
// driven either by Run's internal ticker or directly by tests with an
// explicit clock.
type Engine struct {
	cfg        Config
	logger     *slog.Logger
	metrics    *observe.Metrics
	trust      *trust.Cache
	aggregator *fusion.Aggregator
	debouncer  *fusion.Debouncer
	dispatcher *react.Dispatcher

	mu          sync.Mutex
	lastEmotion *emotion.Result
	frame       []byte
	stats       Stats
}

// New creates an engine from cfg.
func New(cfg Config) *Engine {
	cfg.normalize()

	cache := trust.New(cfg.TrustCapacity)
	agg := fusion.NewAggregator(fusion.AggregatorConfig{
		VisualThreshold:   cfg.VisualThreshold,
		AcousticThreshold: cfg.AcousticThreshold,
		TrustDepth:        cfg.TrustDepth,
	}, cache)

	dispatcher := react.NewDispatcher(cfg.Logger)
	dispatcher.SetMetrics(cfg.Metrics)

	return &Engine{
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "engine"),
		metrics:    cfg.Metrics,
		trust:      cache,
		aggregator: agg,
		debouncer:  fusion.NewDebouncer(cfg.DebounceInterval),
		dispatcher: dispatcher,
	}
}

// Register adds a transition observer.
func (e *Engine) Register(o react.Observer) {
	e.dispatcher.Register(o)
}

// IngestVisual feeds one frame-classifier detection into the current window.
func (e *Engine) IngestVisual(category string, confidence float64) {
	e.aggregator.Add(fusion.SourceVisual, category, confidence)
	e.metrics.RecordDetection(context.Background(), string(fusion.SourceVisual))
	e.countDetection()
}

// IngestAcoustic feeds one audio-classifier detection into the current window.
func (e *Engine) IngestAcoustic(category string, confidence float64) {
	e.aggregator.Add(fusion.SourceAcoustic, category, confidence)
	e.metrics.RecordDetection(context.Background(), string(fusion.SourceAcoustic))
	e.countDetection()
}

// IngestAudioSamples extracts the acoustic descriptor from raw samples and
// classifies the vocalization. A qualifying result is stashed and attached to
// the next committed transition. The classification is also returned so
// callers can log or display it.
func (e *Engine) IngestAudioSamples(samples []float64) (*emotion.Result, error) {
	vec, err := audiofeat.Extract(samples)
	if err != nil {
		return nil, err
	}

	res := emotion.Classify(vec)
	if res != nil {
		e.mu.Lock()
		e.lastEmotion = res
		e.mu.Unlock()
	}
	return res, nil
}

// SetFrame stores the most recent camera frame for deep analysis.
func (e *Engine) SetFrame(frame []byte) {
	e.mu.Lock()
	e.frame = frame
	e.mu.Unlock()
}

// LatestFrame returns the stored frame. Implements react.FrameSource.
func (e *Engine) LatestFrame() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Tick flushes the current window, feeds the raw state through the debouncer,
// and dispatches a transition event when one commits. Called once per window
// interval.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	start := e.cfg.Now()

	snap, ok := e.aggregator.Flush(now)
	if !ok {
		// Previous flush still computing; this window's detections carry
		// over to the next tick.
		return
	}

	e.metrics.Ticks.Add(ctx, 1)

	raw := fusion.ClassifyState(snap.HasVisual, snap.HasAudio)

	e.mu.Lock()
	tr := e.debouncer.Observe(raw, now)
	emo := e.lastEmotion
	e.lastEmotion = nil
	e.stats.Ticks++
	e.stats.LastFlush = now
	e.stats.State = e.debouncer.Stable().String()
	if tr != nil {
		e.stats.Transitions++
	}
	e.mu.Unlock()

	if tr == nil {
		e.metrics.FlushDuration.Record(ctx, e.cfg.Now().Sub(start).Seconds())
		return
	}

	ev := &fusion.TransitionEvent{
		Old:           tr.From,
		New:           tr.To,
		At:            tr.At,
		HasVisual:     snap.HasVisual,
		HasAudio:      snap.HasAudio,
		TrustOverride: snap.TrustOverride,
		Emotion:       emo,
	}
	if e.cfg.ResultLock != nil {
		if text, valid := e.cfg.ResultLock.Text(now); valid {
			ev.OverrideText = text
		}
	}

	e.logger.Info("state transition",
		"from", tr.From.String(),
		"to", tr.To.String(),
		"trust_override", snap.TrustOverride,
	)
	e.metrics.RecordTransition(ctx, tr.To.String())

	e.dispatcher.Notify(ctx, ev)
	e.metrics.FlushDuration.Record(ctx, e.cfg.Now().Sub(start).Seconds())
}

// Run ticks the engine once per window interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.WindowInterval)
	defer ticker.Stop()

	e.logger.Info("engine started",
		"window_interval", e.cfg.WindowInterval,
		"debounce_interval", e.cfg.DebounceInterval,
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx, e.cfg.Now())
		}
	}
}

// State returns the current committed state.
func (e *Engine) State() fusion.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debouncer.Stable()
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.State = e.debouncer.Stable().String()
	return s
}

// Trust exposes the trust cache for diagnostics.
func (e *Engine) Trust() *trust.Cache { return e.trust }

func (e *Engine) countDetection() {
	e.mu.Lock()
	e.stats.Detections++
	e.mu.Unlock()
}
