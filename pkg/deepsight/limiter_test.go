package deepsight

import (
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestLimiter_FirstCallAllowed(t *testing.T) {
	l := NewLimiter(15*time.Second, 3)
	if !l.Allow(base) {
		t.Error("first call must be allowed")
	}
}

func TestLimiter_MinIntervalSpacing(t *testing.T) {
	l := NewLimiter(15*time.Second, 3)
	l.Record(base)

	if l.Allow(base.Add(14 * time.Second)) {
		t.Error("call inside min interval must be declined")
	}
	if !l.Allow(base.Add(15 * time.Second)) {
		t.Error("call at min interval must be allowed")
	}
}

func TestLimiter_RollingMinuteCap(t *testing.T) {
	l := NewLimiter(15*time.Second, 3)

	// Three calls spaced at the minimum interval fill the per-minute quota.
	for i := 0; i < 3; i++ {
		now := base.Add(time.Duration(i*15) * time.Second)
		if !l.Allow(now) {
			t.Fatalf("call %d should be allowed", i+1)
		}
		l.Record(now)
	}

	// 45 s after base: spacing is fine but the cap is hit.
	if l.Allow(base.Add(45 * time.Second)) {
		t.Error("fourth call inside the rolling minute must be declined")
	}

	// Once the first call ages out of the trailing window, room opens up.
	if !l.Allow(base.Add(61 * time.Second)) {
		t.Error("call after the window slid must be allowed")
	}
}

func TestLimiter_CapIgnoresSpacing(t *testing.T) {
	// Even generous spacing cannot beat the cap within one window.
	l := NewLimiter(1*time.Second, 2)
	l.Record(base)
	l.Record(base.Add(20 * time.Second))

	if l.Allow(base.Add(40 * time.Second)) {
		t.Error("cap of 2 must decline the third call in the window")
	}
}

func TestLimiter_RecordTrimsOldEntries(t *testing.T) {
	l := NewLimiter(1*time.Second, 3)
	l.Record(base)
	l.Record(base.Add(2 * time.Minute))

	// The first timestamp is outside the window and must not count.
	l.Record(base.Add(2*time.Minute + 10*time.Second))
	if !l.Allow(base.Add(2*time.Minute + 30*time.Second)) {
		t.Error("trimmed entries must not count toward the cap")
	}
}

func TestResultLock_TTL(t *testing.T) {
	lock := NewResultLock()

	if _, ok := lock.Text(base); ok {
		t.Error("empty lock must return nothing")
	}

	analysis := &Analysis{Text: "a tabby on the windowsill", TargetPresent: true, Confidence: 0.92}
	lock.Set("a tabby on the windowsill", analysis, 30*time.Second, base)

	text, ok := lock.Text(base.Add(29 * time.Second))
	if !ok || text != "a tabby on the windowsill" {
		t.Errorf("unexpired read: got %q ok=%v", text, ok)
	}
	data, ok := lock.Data(base.Add(29 * time.Second))
	if !ok || !data.TargetPresent {
		t.Errorf("unexpired data read: got %+v ok=%v", data, ok)
	}

	if _, ok := lock.Text(base.Add(30 * time.Second)); ok {
		t.Error("read at expiry must return nothing")
	}
	if _, ok := lock.Data(base.Add(31 * time.Second)); ok {
		t.Error("read after expiry must return nothing")
	}
}

func TestSlot_SingleFlight(t *testing.T) {
	var s Slot

	if !s.TryAcquire() {
		t.Fatal("first acquire must succeed")
	}
	if s.TryAcquire() {
		t.Error("second acquire while in flight must be declined")
	}
	if !s.InFlight() {
		t.Error("slot should report in flight")
	}

	s.Release()
	if s.InFlight() {
		t.Error("released slot should be free")
	}
	if !s.TryAcquire() {
		t.Error("acquire after release must succeed")
	}
}
