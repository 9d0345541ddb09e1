package fusion

import (
	"time"

	"github.com/purrlab/go-whisker/pkg/emotion"
)

// TransitionEvent is the payload fanned out to observers when a stable state
// change commits. Exactly one event is emitted per committed change.
type TransitionEvent struct {
	// Old and New are the stable states either side of the transition.
	Old State `json:"old"`
	New State `json:"new"`

	// At is the commit time.
	At time.Time `json:"at"`

	// HasVisual and HasAudio are the presence booleans behind New.
	HasVisual bool `json:"has_visual"`
	HasAudio  bool `json:"has_audio"`

	// TrustOverride is true when visual presence came from history rather
	// than a live detection.
	TrustOverride bool `json:"trust_override,omitempty"`

	// Emotion is the most recent acoustic emotion result, when one
	// qualified this window. Nil otherwise.
	Emotion *emotion.Result `json:"emotion,omitempty"`

	// OverrideText is deep-analysis text that replaces the state-derived
	// default notification text while its result lock is unexpired.
	OverrideText string `json:"override_text,omitempty"`
}

// VisualEdge reports whether the transition crosses visual presence in either
// direction. The deep-analysis trigger fires only on these edges, not on
// every transition.
func (e *TransitionEvent) VisualEdge() bool {
	return e.Old.HasVisual() != e.New.HasVisual()
}
