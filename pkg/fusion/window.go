package fusion

import (
	"sync"
	"time"

	"github.com/purrlab/go-whisker/pkg/trust"
)

// Default aggregation tunables.
const (
	// DefaultVisualThreshold is the minimum confidence for a visual
	// detection to count toward presence.
	DefaultVisualThreshold = 0.3

	// DefaultAcousticThreshold is the minimum confidence for an acoustic
	// detection to count toward presence.
	DefaultAcousticThreshold = 0.2

	// DefaultTrustDepth is how many recent trust entries are scanned for
	// the trust override.
	DefaultTrustDepth = 10
)

// Snapshot is the result of one window flush.
type Snapshot struct {
	// Visual and Acoustic hold the max confidence seen per category in the
	// flushed window.
	Visual   map[string]float64
	Acoustic map[string]float64

	// HasVisual is true when a visual target detection cleared the
	// threshold, or the trust override kicked in.
	HasVisual bool

	// HasAudio is true when an acoustic target detection cleared the
	// threshold.
	HasAudio bool

	// TrustOverride is true when HasVisual came from trust history rather
	// than a detection in this window.
	TrustOverride bool

	// At is the flush time.
	At time.Time
}

// AggregatorConfig tunes an Aggregator.
type AggregatorConfig struct {
	VisualThreshold   float64
	AcousticThreshold float64
	TrustDepth        int
}

// DefaultAggregatorConfig returns the standard thresholds.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		VisualThreshold:   DefaultVisualThreshold,
		AcousticThreshold: DefaultAcousticThreshold,
		TrustDepth:        DefaultTrustDepth,
	}
}

// Aggregator collects per-tick detections into a deduplicated max-confidence
// map per source, one window at a time.
//
// Add may be called from any goroutine at any rate; a detection arriving
// while a flush is computing lands in the next window. Flushes themselves
// never overlap.
type Aggregator struct {
	cfg   AggregatorConfig
	trust *trust.Cache

	mu       sync.Mutex
	visual   map[string]float64
	acoustic map[string]float64
	flushing bool
}

// NewAggregator creates an aggregator writing visual history into cache.
func NewAggregator(cfg AggregatorConfig, cache *trust.Cache) *Aggregator {
	if cfg.TrustDepth <= 0 {
		cfg.TrustDepth = DefaultTrustDepth
	}
	return &Aggregator{
		cfg:      cfg,
		trust:    cache,
		visual:   make(map[string]float64),
		acoustic: make(map[string]float64),
	}
}

// Add merges a detection into the current window, keeping the max confidence
// per category. Confidence never decreases within a window.
func (a *Aggregator) Add(source Source, category string, confidence float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	window := a.visual
	if source == SourceAcoustic {
		window = a.acoustic
	}
	if confidence > window[category] {
		window[category] = confidence
	}
}

// Flush closes the current window and returns its snapshot.
//
// The returned bool is false when another flush is still in flight; the
// window is left untouched in that case. Visual target detections above
// threshold are written to the trust cache; when none are present, the
// trust override scans recent history instead.
func (a *Aggregator) Flush(now time.Time) (Snapshot, bool) {
	a.mu.Lock()
	if a.flushing {
		a.mu.Unlock()
		return Snapshot{}, false
	}
	a.flushing = true

	visual, acoustic := a.visual, a.acoustic
	a.visual = make(map[string]float64)
	a.acoustic = make(map[string]float64)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.flushing = false
		a.mu.Unlock()
	}()

	snap := Snapshot{
		Visual:   visual,
		Acoustic: acoustic,
		At:       now,
	}

	for category, confidence := range visual {
		if confidence < a.cfg.VisualThreshold {
			continue
		}
		isTarget := MatchesTarget(SourceVisual, category)
		if isTarget {
			snap.HasVisual = true
		}
		if a.trust != nil {
			a.trust.Set(trust.Entry{
				Category:   category,
				Confidence: confidence,
				Timestamp:  now,
				IsTarget:   isTarget,
			})
		}
	}

	for category, confidence := range acoustic {
		if confidence >= a.cfg.AcousticThreshold && MatchesTarget(SourceAcoustic, category) {
			snap.HasAudio = true
			break
		}
	}

	// No direct sighting this window: trust recent history instead, so a
	// cat ducking behind the sofa does not flap the state.
	if !snap.HasVisual && a.trust != nil {
		for _, e := range a.trust.Recent(a.cfg.TrustDepth) {
			if e.IsTarget {
				snap.HasVisual = true
				snap.TrustOverride = true
				break
			}
		}
	}

	return snap, true
}
