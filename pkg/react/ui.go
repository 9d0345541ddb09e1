package react

import (
	"context"

	"github.com/purrlab/go-whisker/pkg/fusion"
)

// UICallback forwards transitions to a host UI callback as a (new, old)
// state pair.
type UICallback struct {
	fn       func(newState, oldState fusion.State)
	priority int
}

// NewUICallback creates the UI forwarding observer.
func NewUICallback(fn func(newState, oldState fusion.State), priority int) *UICallback {
	return &UICallback{fn: fn, priority: priority}
}

func (u *UICallback) Name() string  { return "ui-callback" }
func (u *UICallback) Priority() int { return u.priority }

func (u *UICallback) OnTransition(_ context.Context, ev *fusion.TransitionEvent) error {
	if u.fn != nil {
		u.fn(ev.New, ev.Old)
	}
	return nil
}
