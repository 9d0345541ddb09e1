package react

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/purrlab/go-whisker/pkg/fusion"
)

// DiagnosticEvent is one recorded transition, kept for debugging and the
// monitor dashboard.
type DiagnosticEvent struct {
	ID         string    `json:"id"`
	Old        string    `json:"old"`
	New        string    `json:"new"`
	At         time.Time `json:"at"`
	RecordedAt time.Time `json:"recorded_at"`
	Emotion    string    `json:"emotion,omitempty"`
}

// Diagnostics records recent transitions in a bounded ring.
type Diagnostics struct {
	mu       sync.Mutex
	events   []DiagnosticEvent
	capacity int
	now      func() time.Time
	priority int
}

// NewDiagnostics creates a recorder keeping the last capacity events.
func NewDiagnostics(capacity, priority int) *Diagnostics {
	if capacity <= 0 {
		capacity = 64
	}
	return &Diagnostics{
		capacity: capacity,
		now:      time.Now,
		priority: priority,
	}
}

func (d *Diagnostics) Name() string  { return "diagnostics" }
func (d *Diagnostics) Priority() int { return d.priority }

func (d *Diagnostics) OnTransition(_ context.Context, ev *fusion.TransitionEvent) error {
	rec := DiagnosticEvent{
		ID:         uuid.NewString(),
		Old:        ev.Old.String(),
		New:        ev.New.String(),
		At:         ev.At,
		RecordedAt: d.now(),
	}
	if ev.Emotion != nil {
		rec.Emotion = ev.Emotion.EmotionID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, rec)
	if len(d.events) > d.capacity {
		d.events = d.events[len(d.events)-d.capacity:]
	}
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (d *Diagnostics) Events() []DiagnosticEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DiagnosticEvent, len(d.events))
	copy(out, d.events)
	return out
}
