package react

import (
	"context"
	"log/slog"
	"time"

	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/deepsight"
	"github.com/purrlab/go-whisker/pkg/fusion"
)

// Analyzer is the deep-analysis call surface the trigger depends on.
// *deepsight.Client satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req *deepsight.Request) (*deepsight.Analysis, error)
}

// FrameSource supplies the most recent camera frame for analysis. A nil or
// empty frame skips the call.
type FrameSource interface {
	LatestFrame() []byte
}

// DeepTrigger fires the rate-limited deep-analysis call on visual presence
// edges. Transitions that do not cross visual presence (e.g. idle to
// audio_only) never trigger a call.
//
// The call runs in its own goroutine so the tick loop is never blocked; the
// single-flight slot declines a new call while one is in flight, and is
// released unconditionally when the call finishes or fails.
type DeepTrigger struct {
	analyzer Analyzer
	frames   FrameSource
	limiter  *deepsight.Limiter
	slot     *deepsight.Slot
	lock     *deepsight.ResultLock
	lockTTL  time.Duration
	prompt   string
	now      func() time.Time
	logger   *slog.Logger
	metrics  *observe.Metrics
	onResult func(*deepsight.Analysis)
	priority int
}

// DeepTriggerConfig wires a DeepTrigger.
type DeepTriggerConfig struct {
	Analyzer Analyzer
	Frames   FrameSource
	Limiter  *deepsight.Limiter
	Slot     *deepsight.Slot
	Lock     *deepsight.ResultLock
	LockTTL  time.Duration
	Prompt   string
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *observe.Metrics
	Priority int

	// OnResult, when set, receives every successful analysis after the
	// result lock is updated. The dashboard uses it to broadcast results.
	OnResult func(*deepsight.Analysis)
}

// DefaultAnalysisPrompt steers the deep-analysis service.
const DefaultAnalysisPrompt = "Describe what the cat is doing in this frame, in one short sentence."

// NewDeepTrigger creates the deep-analysis observer.
func NewDeepTrigger(cfg DeepTriggerConfig) *DeepTrigger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultAnalysisPrompt
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = deepsight.DefaultLockTTL
	}
	return &DeepTrigger{
		analyzer: cfg.Analyzer,
		frames:   cfg.Frames,
		limiter:  cfg.Limiter,
		slot:     cfg.Slot,
		lock:     cfg.Lock,
		lockTTL:  cfg.LockTTL,
		prompt:   cfg.Prompt,
		now:      cfg.Now,
		logger:   cfg.Logger.With("component", "react.deeptrigger"),
		metrics:  cfg.Metrics,
		onResult: cfg.OnResult,
		priority: cfg.Priority,
	}
}

func (d *DeepTrigger) Name() string  { return "deep-analysis" }
func (d *DeepTrigger) Priority() int { return d.priority }

func (d *DeepTrigger) OnTransition(ctx context.Context, ev *fusion.TransitionEvent) error {
	if !ev.VisualEdge() {
		return nil
	}

	now := d.now()
	if !d.limiter.Allow(now) {
		// A declined call is a defined outcome, not an error.
		d.logger.Debug("deep analysis rate limited", "transition", ev.New.String())
		d.countCall(ctx, "declined")
		return nil
	}

	frame := d.frames.LatestFrame()
	if len(frame) == 0 {
		d.logger.Debug("no frame available for deep analysis")
		d.countCall(ctx, "declined")
		return nil
	}

	if !d.slot.TryAcquire() {
		d.logger.Debug("deep analysis already in flight, declined")
		d.countCall(ctx, "declined")
		return nil
	}

	d.limiter.Record(now)

	go func() {
		defer d.slot.Release()

		analysis, err := d.analyzer.Analyze(ctx, &deepsight.Request{
			Image:  frame,
			Prompt: d.prompt,
		})
		if err != nil {
			// Degrade to no override text; the engine keeps ticking.
			d.logger.Warn("deep analysis failed", "error", err)
			d.countCall(ctx, "error")
			return
		}

		d.lock.Set(analysis.Text, analysis, d.lockTTL, d.now())
		d.countCall(ctx, "ok")
		d.logger.Info("deep analysis result",
			"text", analysis.Text,
			"target_present", analysis.TargetPresent,
		)
		if d.onResult != nil {
			d.onResult(analysis)
		}
	}()

	return nil
}

func (d *DeepTrigger) countCall(ctx context.Context, status string) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDeepCall(ctx, status)
}
