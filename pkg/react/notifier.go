package react

import (
	"context"
	"time"

	"github.com/purrlab/go-whisker/pkg/fusion"
)

// SourceTag identifies this engine in notification records.
const SourceTag = "whisker.presence"

// Record is the notification emitted to the host transport on every
// committed transition.
type Record struct {
	Text      string         `json:"text"`
	SourceTag string         `json:"source_tag"`
	State     string         `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Emitter delivers a notification record to the host. Emit is synchronous;
// the transport behind it is out of the engine's hands.
type Emitter interface {
	Emit(record *Record) error
}

// Default notification texts per stable state.
var stateTexts = map[fusion.State]string{
	fusion.StateIdle:       "All quiet. No cat around.",
	fusion.StateVisualOnly: "Cat spotted!",
	fusion.StateAudioOnly:  "I can hear the cat.",
	fusion.StateBoth:       "Cat is here, seen and heard.",
}

// Notifier emits a formatted notification record for every transition.
// Deep-analysis override text, when carried by the event, replaces the
// state-derived default.
type Notifier struct {
	emitter  Emitter
	priority int
}

// NewNotifier creates the notification observer.
func NewNotifier(emitter Emitter, priority int) *Notifier {
	return &Notifier{emitter: emitter, priority: priority}
}

func (n *Notifier) Name() string  { return "notifier" }
func (n *Notifier) Priority() int { return n.priority }

func (n *Notifier) OnTransition(_ context.Context, ev *fusion.TransitionEvent) error {
	return n.emitter.Emit(BuildRecord(ev))
}

// BuildRecord formats the notification record for a transition.
func BuildRecord(ev *fusion.TransitionEvent) *Record {
	text := stateTexts[ev.New]
	if ev.OverrideText != "" {
		text = ev.OverrideText
	}

	meta := map[string]any{
		"old_state":  ev.Old.String(),
		"has_visual": ev.HasVisual,
		"has_audio":  ev.HasAudio,
	}
	if ev.TrustOverride {
		meta["trust_override"] = true
	}
	if ev.Emotion != nil {
		meta["emotion"] = ev.Emotion.EmotionID
		meta["emotion_category"] = string(ev.Emotion.Category)
	}

	return &Record{
		Text:      text,
		SourceTag: SourceTag,
		State:     ev.New.String(),
		Timestamp: ev.At,
		Metadata:  meta,
	}
}
