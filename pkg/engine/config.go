package engine

import (
	"log/slog"
	"time"

	"github.com/purrlab/go-whisker/internal/observe"
	"github.com/purrlab/go-whisker/pkg/deepsight"
	"github.com/purrlab/go-whisker/pkg/fusion"
	"github.com/purrlab/go-whisker/pkg/trust"
)

// Default engine tunables.
const (
	// DefaultWindowInterval is the aggregation window length; one flush per
	// interval.
	DefaultWindowInterval = time.Second
)

// Config tunes an Engine. The zero value is usable; every field falls back to
// its default.
type Config struct {
	// WindowInterval is how often the window flushes in Run.
	WindowInterval time.Duration

	// DebounceInterval is how long a raw state must persist before a
	// transition commits.
	DebounceInterval time.Duration

	// VisualThreshold and AcousticThreshold gate detections into presence.
	VisualThreshold   float64
	AcousticThreshold float64

	// TrustCapacity bounds the trust cache; TrustDepth is how many recent
	// entries the override scans.
	TrustCapacity int
	TrustDepth    int

	// ResultLock, when set, supplies deep-analysis override text for
	// transition events while unexpired.
	ResultLock *deepsight.ResultLock

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics defaults to observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Now is the clock, injectable for tests.
	Now func() time.Time
}

func (c *Config) normalize() {
	if c.WindowInterval <= 0 {
		c.WindowInterval = DefaultWindowInterval
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = fusion.DefaultDebounceInterval
	}
	if c.VisualThreshold <= 0 {
		c.VisualThreshold = fusion.DefaultVisualThreshold
	}
	if c.AcousticThreshold <= 0 {
		c.AcousticThreshold = fusion.DefaultAcousticThreshold
	}
	if c.TrustCapacity <= 0 {
		c.TrustCapacity = trust.DefaultCapacity
	}
	if c.TrustDepth <= 0 {
		c.TrustDepth = fusion.DefaultTrustDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = observe.DefaultMetrics()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
