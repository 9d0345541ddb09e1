package fusion

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDebouncer_CommitsAfterInterval(t *testing.T) {
	d := NewDebouncer(2 * time.Second)

	// Raw state changes: pending resets, nothing commits yet.
	if tr := d.Observe(StateVisualOnly, t0); tr != nil {
		t.Fatalf("immediate commit: %+v", tr)
	}

	// Still inside the interval.
	if tr := d.Observe(StateVisualOnly, t0.Add(1*time.Second)); tr != nil {
		t.Fatalf("early commit: %+v", tr)
	}

	// Interval elapsed: exactly one transition.
	tr := d.Observe(StateVisualOnly, t0.Add(2*time.Second))
	if tr == nil {
		t.Fatal("expected a transition")
	}
	if tr.From != StateIdle || tr.To != StateVisualOnly {
		t.Errorf("transition: got %v -> %v", tr.From, tr.To)
	}
	if d.Stable() != StateVisualOnly {
		t.Errorf("stable: got %v", d.Stable())
	}
}

func TestDebouncer_UnchangedStateNeverReEmits(t *testing.T) {
	d := NewDebouncer(2 * time.Second)
	d.Observe(StateBoth, t0)
	if tr := d.Observe(StateBoth, t0.Add(2*time.Second)); tr == nil {
		t.Fatal("expected the commit")
	}

	// Arbitrarily many further observations of the same state stay silent.
	for i := 3; i < 20; i++ {
		if tr := d.Observe(StateBoth, t0.Add(time.Duration(i)*time.Second)); tr != nil {
			t.Fatalf("re-emit at %d s: %+v", i, tr)
		}
	}
}

func TestDebouncer_FlappingNeverCommits(t *testing.T) {
	d := NewDebouncer(2 * time.Second)

	// Raw state alternates every second, faster than the interval.
	states := []State{StateVisualOnly, StateIdle, StateVisualOnly, StateIdle, StateBoth, StateIdle}
	for i, s := range states {
		if tr := d.Observe(s, t0.Add(time.Duration(i)*time.Second)); tr != nil {
			t.Fatalf("flapping committed at step %d: %+v", i, tr)
		}
	}
	if d.Stable() != StateIdle {
		t.Errorf("stable drifted to %v", d.Stable())
	}
}

func TestDebouncer_ReturnToStableCancelsPending(t *testing.T) {
	d := NewDebouncer(2 * time.Second)

	d.Observe(StateVisualOnly, t0)
	// Raw drops back to idle before the interval elapses.
	d.Observe(StateIdle, t0.Add(1*time.Second))
	// Idle persists past the interval but matches stable: nothing commits.
	if tr := d.Observe(StateIdle, t0.Add(4*time.Second)); tr != nil {
		t.Fatalf("unexpected commit: %+v", tr)
	}
}

func TestDebouncer_SequentialTransitions(t *testing.T) {
	d := NewDebouncer(2 * time.Second)

	d.Observe(StateVisualOnly, t0)
	first := d.Observe(StateVisualOnly, t0.Add(2*time.Second))
	if first == nil {
		t.Fatal("expected first transition")
	}

	d.Observe(StateBoth, t0.Add(3*time.Second))
	second := d.Observe(StateBoth, t0.Add(5*time.Second))
	if second == nil {
		t.Fatal("expected second transition")
	}
	if second.From != StateVisualOnly || second.To != StateBoth {
		t.Errorf("second transition: got %v -> %v", second.From, second.To)
	}
}

func TestTransitionEvent_VisualEdge(t *testing.T) {
	tests := []struct {
		old, new State
		want     bool
	}{
		{StateIdle, StateVisualOnly, true},
		{StateVisualOnly, StateIdle, true},
		{StateIdle, StateBoth, true},
		{StateBoth, StateAudioOnly, true},
		{StateIdle, StateAudioOnly, false},
		{StateVisualOnly, StateBoth, false},
		{StateAudioOnly, StateIdle, false},
	}

	for _, tt := range tests {
		e := &TransitionEvent{Old: tt.old, New: tt.new}
		if got := e.VisualEdge(); got != tt.want {
			t.Errorf("VisualEdge(%v -> %v): got %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}
