package react

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/purrlab/go-whisker/pkg/deepsight"
	"github.com/purrlab/go-whisker/pkg/fusion"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *deepsight.Analysis
	err    error
	done   chan struct{}
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *deepsight.Request) (*deepsight.Analysis, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		defer close(f.done)
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFrames struct {
	frame []byte
}

func (f *fakeFrames) LatestFrame() []byte { return f.frame }

func newTrigger(t *testing.T, analyzer *fakeAnalyzer, frames FrameSource, now time.Time) (*DeepTrigger, *deepsight.ResultLock, *deepsight.Slot) {
	t.Helper()
	lock := &deepsight.ResultLock{}
	slot := &deepsight.Slot{}
	d := NewDeepTrigger(DeepTriggerConfig{
		Analyzer: analyzer,
		Frames:   frames,
		Limiter:  deepsight.NewLimiter(deepsight.DefaultMinInterval, deepsight.DefaultMaxPerMinute),
		Slot:     slot,
		Lock:     lock,
		Now:      func() time.Time { return now },
	})
	return d, lock, slot
}

func TestDeepTrigger_FiresOnVisualEdge(t *testing.T) {
	now := time.Now()
	analyzer := &fakeAnalyzer{
		result: &deepsight.Analysis{Text: "Cat is on the windowsill.", TargetPresent: true, Confidence: 0.9},
		done:   make(chan struct{}),
	}
	d, lock, _ := newTrigger(t, analyzer, &fakeFrames{frame: []byte{1, 2, 3}}, now)

	ev := event(fusion.StateIdle, fusion.StateVisualOnly)
	if err := d.OnTransition(context.Background(), ev); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}

	select {
	case <-analyzer.done:
	case <-time.After(time.Second):
		t.Fatal("analyzer never called")
	}

	// Give the goroutine a beat to set the lock after Analyze returns.
	deadline := time.Now().Add(time.Second)
	for {
		if text, ok := lock.Text(now); ok {
			if text != "Cat is on the windowsill." {
				t.Errorf("lock text: got %q", text)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("result lock never set")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDeepTrigger_IgnoresNonVisualEdge(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &deepsight.Analysis{Text: "x"}}
	d, _, _ := newTrigger(t, analyzer, &fakeFrames{frame: []byte{1}}, time.Now())

	// idle -> audio_only: visual presence unchanged.
	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateAudioOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Errorf("analyzer called %d times on a non-visual edge", analyzer.callCount())
	}
}

func TestDeepTrigger_DeclinesWhenRateLimited(t *testing.T) {
	now := time.Now()
	analyzer := &fakeAnalyzer{result: &deepsight.Analysis{Text: "x"}, done: make(chan struct{})}
	d, _, _ := newTrigger(t, analyzer, &fakeFrames{frame: []byte{1}}, now)

	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	<-analyzer.done

	// Second edge within the minimum spacing is declined without error.
	if err := d.OnTransition(context.Background(), event(fusion.StateVisualOnly, fusion.StateIdle)); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if analyzer.callCount() != 1 {
		t.Errorf("analyzer calls: got %d, want 1", analyzer.callCount())
	}
}

func TestDeepTrigger_DeclinesWhenInFlight(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &deepsight.Analysis{Text: "x"}}
	d, _, slot := newTrigger(t, analyzer, &fakeFrames{frame: []byte{1}}, time.Now())

	if !slot.TryAcquire() {
		t.Fatal("could not acquire slot for setup")
	}
	defer slot.Release()

	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Errorf("analyzer called while another call was in flight")
	}
}

func TestDeepTrigger_SkipsWithoutFrame(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &deepsight.Analysis{Text: "x"}}
	d, _, _ := newTrigger(t, analyzer, &fakeFrames{frame: nil}, time.Now())

	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	if analyzer.callCount() != 0 {
		t.Errorf("analyzer called without a frame")
	}
}

func TestDeepTrigger_ForwardsResult(t *testing.T) {
	now := time.Now()
	analyzer := &fakeAnalyzer{
		result: &deepsight.Analysis{Text: "Cat is loafing on the rug.", TargetPresent: true, Confidence: 0.8},
		done:   make(chan struct{}),
	}

	results := make(chan *deepsight.Analysis, 1)
	d := NewDeepTrigger(DeepTriggerConfig{
		Analyzer: analyzer,
		Frames:   &fakeFrames{frame: []byte{1}},
		Limiter:  deepsight.NewLimiter(deepsight.DefaultMinInterval, deepsight.DefaultMaxPerMinute),
		Slot:     &deepsight.Slot{},
		Lock:     &deepsight.ResultLock{},
		Now:      func() time.Time { return now },
		OnResult: func(a *deepsight.Analysis) { results <- a },
	})

	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}

	select {
	case a := <-results:
		if a.Text != "Cat is loafing on the rug." {
			t.Errorf("result text: got %q", a.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("result never forwarded")
	}
}

func TestDeepTrigger_FailureLeavesLockUnset(t *testing.T) {
	now := time.Now()
	analyzer := &fakeAnalyzer{err: errors.New("service down"), done: make(chan struct{})}
	d, lock, slot := newTrigger(t, analyzer, &fakeFrames{frame: []byte{1}}, now)

	if err := d.OnTransition(context.Background(), event(fusion.StateIdle, fusion.StateVisualOnly)); err != nil {
		t.Fatalf("OnTransition: %v", err)
	}
	<-analyzer.done

	// Wait for the goroutine to release the slot.
	deadline := time.Now().Add(time.Second)
	for slot.InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("slot never released after failure")
		}
		time.Sleep(time.Millisecond)
	}

	if _, ok := lock.Text(now); ok {
		t.Error("result lock set despite analysis failure")
	}
}
