package deepsight

import "sync/atomic"

// Slot is a single-flight guard: at most one in-flight call per channel.
// A caller that fails TryAcquire is declined, never queued; the natural
// retry is the next tick.
type Slot struct {
	busy atomic.Bool
}

// TryAcquire claims the slot. It returns false when a call is already in
// flight.
func (s *Slot) TryAcquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

// Release frees the slot. Call it in a defer so the guard clears even when
// the call fails or panics.
func (s *Slot) Release() {
	s.busy.Store(false)
}

// InFlight reports whether a call currently holds the slot.
func (s *Slot) InFlight() bool {
	return s.busy.Load()
}
