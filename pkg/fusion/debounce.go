package fusion

import "time"

// DefaultDebounceInterval is how long a raw state must persist before it is
// committed.
const DefaultDebounceInterval = 2 * time.Second

// Transition is a committed state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Debouncer turns raw per-window states into a stabilized state, committing a
// change only after the raw state has persisted for the debounce interval.
//
// This filters single-window noise and is independent of the trust override:
// trust smooths the inputs to the raw state, the debouncer smooths the raw
// state itself.
type Debouncer struct {
	interval time.Duration

	pending  State
	stable   State
	changeAt time.Time
	primed   bool
}

// NewDebouncer creates a debouncer starting in StateIdle. Non-positive
// intervals fall back to the default.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Debouncer{interval: interval}
}

// Observe feeds one raw state. It returns a non-nil Transition exactly when
// the pending state has persisted for the full interval and differs from the
// stable state; repeated observations of an unchanged state never re-emit.
func (d *Debouncer) Observe(raw State, now time.Time) *Transition {
	if !d.primed || raw != d.pending {
		d.pending = raw
		d.changeAt = now
		d.primed = true
		return nil
	}

	if now.Sub(d.changeAt) < d.interval || d.stable == d.pending {
		return nil
	}

	tr := &Transition{From: d.stable, To: d.pending, At: now}
	d.stable = d.pending
	return tr
}

// Stable returns the committed state.
func (d *Debouncer) Stable() State { return d.stable }

// Pending returns the raw state currently waiting out the interval.
func (d *Debouncer) Pending() State { return d.pending }
