package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub maintains the set of connected viewers and fans broadcast messages
// out to them. All registration and delivery runs through channels owned
// by the Run loop; only ViewerCount takes the mutex from outside.
type Hub struct {
	name   string
	logger *slog.Logger

	viewers map[*Viewer]bool

	broadcast  chan Message
	register   chan *Viewer
	unregister chan *Viewer

	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	mu sync.RWMutex
}

// New creates a hub. The name tags log lines; one engine can run several
// hubs side by side.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     slog.Default().With("hub", name),
		viewers:    make(map[*Viewer]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Viewer),
		unregister: make(chan *Viewer),
		done:       make(chan struct{}),
	}
}

// Run drives the hub loop. Call in a goroutine; it returns after Stop.
func (h *Hub) Run() {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-h.done:
			return

		case v := <-h.register:
			h.mu.Lock()
			h.viewers[v] = true
			count := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("viewer connected", "total", count)

		case v := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.viewers[v]; ok {
				delete(h.viewers, v)
				close(v.send)
			}
			count := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("viewer disconnected", "remaining", count)

		case msg := <-h.broadcast:
			// Deliver under the read lock; removal needs the write
			// lock, so slow viewers are collected and dropped after.
			var slow []*Viewer
			h.mu.RLock()
			for v := range h.viewers {
				select {
				case v.send <- msg:
				default:
					slow = append(slow, v)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, v := range slow {
					if _, ok := h.viewers[v]; ok {
						delete(h.viewers, v)
						close(v.send)
					}
				}
				h.mu.Unlock()
				h.logger.Warn("dropped slow viewers", "count", len(slow))
			}
		}
	}
}

// Stop terminates the Run loop. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues a message for every viewer. Never blocks; when the
// broadcast channel is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes, e.g. a JPEG frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ViewerCount returns the number of connected viewers.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// IsRunning reports whether the Run loop is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
