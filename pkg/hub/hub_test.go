package hub

import (
	"testing"
	"time"
)

// waitUntil polls cond for up to two seconds.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewHub(t *testing.T) {
	h := New("test")

	if h == nil {
		t.Fatal("New returned nil")
	}
	if h.ViewerCount() != 0 {
		t.Error("ViewerCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not be running before Run")
	}
}

func TestStopTerminatesRun(t *testing.T) {
	h := New("test")
	go h.Run()

	waitUntil(t, h.IsRunning, "hub never started")

	h.Stop()
	waitUntil(t, func() bool { return !h.IsRunning() }, "hub never stopped")

	// Stopping twice is fine.
	h.Stop()
}

func TestBroadcastToEmptyHub(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	// Broadcast to empty hub should not panic or block
	h.Broadcast(NewJSONMessage([]byte(`{"type":"stats"}`)))
	h.BroadcastBinary([]byte{0xff, 0xd8})
}

func TestBroadcastJSON(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	if err := h.BroadcastJSON(map[string]string{"state": "both"}); err != nil {
		t.Fatalf("BroadcastJSON error: %v", err)
	}

	// Unmarshalable values surface an error instead of being dropped
	// silently.
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("BroadcastJSON should fail for unmarshalable value")
	}
}

func TestSlowViewerDroppedDuringViewerCount(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	// A viewer with an unbuffered send channel and no reader is slow on
	// the first delivery.
	v := &Viewer{hub: h, send: make(chan Message)}
	h.register <- v
	waitUntil(t, func() bool { return h.ViewerCount() == 1 }, "viewer never registered")

	// Hammer ViewerCount while broadcasts drop the slow viewer; the drop
	// must happen under the write lock, so the race detector stays quiet.
	counted := make(chan struct{})
	go func() {
		defer close(counted)
		for i := 0; i < 100; i++ {
			_ = h.ViewerCount()
		}
	}()

	for i := 0; i < 10; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	<-counted

	waitUntil(t, func() bool { return h.ViewerCount() == 0 }, "slow viewer never dropped")
}

func TestBroadcastChannelOverflow(t *testing.T) {
	h := New("test")
	// Hub not running: the broadcast channel fills up and further
	// messages are dropped without blocking.
	for i := 0; i < 300; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
}

func TestMessageConstructors(t *testing.T) {
	j := NewJSONMessage([]byte(`{"a":1}`))
	if j.Type != JSONMessage {
		t.Errorf("Type = %v, want JSONMessage", j.Type)
	}

	b := NewBinaryMessage([]byte{1, 2, 3})
	if b.Type != BinaryMessage {
		t.Errorf("Type = %v, want BinaryMessage", b.Type)
	}
	if len(b.Data) != 3 {
		t.Errorf("Data length = %d, want 3", len(b.Data))
	}
}
