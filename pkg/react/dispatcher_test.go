package react

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/purrlab/go-whisker/pkg/emotion"
	"github.com/purrlab/go-whisker/pkg/fusion"
)

type fakeObserver struct {
	name     string
	priority int
	fail     error
	panics   bool
	calls    *[]string
}

func (f *fakeObserver) Name() string  { return f.name }
func (f *fakeObserver) Priority() int { return f.priority }

func (f *fakeObserver) OnTransition(_ context.Context, _ *fusion.TransitionEvent) error {
	*f.calls = append(*f.calls, f.name)
	if f.panics {
		panic("observer exploded")
	}
	return f.fail
}

func event(old, new fusion.State) *fusion.TransitionEvent {
	return &fusion.TransitionEvent{
		Old:       old,
		New:       new,
		At:        time.Now(),
		HasVisual: new.HasVisual(),
		HasAudio:  new.HasAudio(),
	}
}

func TestDispatcher_PriorityOrder(t *testing.T) {
	var calls []string
	d := NewDispatcher(nil)
	d.Register(&fakeObserver{name: "low", priority: 10, calls: &calls})
	d.Register(&fakeObserver{name: "high", priority: 100, calls: &calls})
	d.Register(&fakeObserver{name: "mid", priority: 50, calls: &calls})

	d.Notify(context.Background(), event(fusion.StateIdle, fusion.StateBoth))

	want := []string{"high", "mid", "low"}
	if len(calls) != len(want) {
		t.Fatalf("calls: got %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, calls[i], want[i])
		}
	}
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	var calls []string
	d := NewDispatcher(nil)
	d.Register(&fakeObserver{name: "first", priority: 30, fail: errors.New("boom"), calls: &calls})
	d.Register(&fakeObserver{name: "second", priority: 20, panics: true, calls: &calls})
	d.Register(&fakeObserver{name: "third", priority: 10, calls: &calls})

	d.Notify(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly))

	if len(calls) != 3 {
		t.Fatalf("expected all observers to run, got %v", calls)
	}
	if calls[2] != "third" {
		t.Errorf("later observer skipped: %v", calls)
	}
}

func TestNotifier_BuildRecord(t *testing.T) {
	ev := event(fusion.StateIdle, fusion.StateBoth)
	ev.Emotion = &emotion.Result{EmotionID: "hungry_meow", Category: emotion.CategoryAttention, Confidence: 0.85}

	rec := BuildRecord(ev)
	if rec.Text != "Cat is here, seen and heard." {
		t.Errorf("text: got %q", rec.Text)
	}
	if rec.State != "both" || rec.SourceTag != SourceTag {
		t.Errorf("record: %+v", rec)
	}
	if rec.Metadata["emotion"] != "hungry_meow" {
		t.Errorf("metadata: %+v", rec.Metadata)
	}
}

func TestNotifier_OverrideTextWins(t *testing.T) {
	ev := event(fusion.StateIdle, fusion.StateVisualOnly)
	ev.OverrideText = "The tabby is loafing on the keyboard."

	rec := BuildRecord(ev)
	if rec.Text != "The tabby is loafing on the keyboard." {
		t.Errorf("override text lost: %q", rec.Text)
	}
}

type captureEmitter struct {
	records []*Record
	fail    error
}

func (c *captureEmitter) Emit(r *Record) error {
	c.records = append(c.records, r)
	return c.fail
}

func TestNotifier_EmitsOnTransition(t *testing.T) {
	em := &captureEmitter{}
	n := NewNotifier(em, 100)

	if err := n.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateAudioOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	if len(em.records) != 1 {
		t.Fatalf("records: got %d", len(em.records))
	}
	if em.records[0].State != "audio_only" {
		t.Errorf("state: got %q", em.records[0].State)
	}
}

func TestDiagnostics_BoundedRing(t *testing.T) {
	d := NewDiagnostics(3, 10)

	for i := 0; i < 5; i++ {
		d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly))
	}

	events := d.Events()
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
	for _, e := range events {
		if e.ID == "" {
			t.Error("event missing ID")
		}
	}
}

func TestUICallback_ForwardsStates(t *testing.T) {
	var gotNew, gotOld fusion.State
	u := NewUICallback(func(n, o fusion.State) { gotNew, gotOld = n, o }, 50)

	u.OnTransition(context.Background(), event(fusion.StateVisualOnly, fusion.StateBoth))
	if gotNew != fusion.StateBoth || gotOld != fusion.StateVisualOnly {
		t.Errorf("callback got %v, %v", gotNew, gotOld)
	}
}
