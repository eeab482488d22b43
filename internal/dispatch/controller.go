package dispatch

import "sync/atomic"

// Controller is the epoch gate between concurrent tasks and the serialized
// message stream. Every task is stamped with the epoch current when its
// command was produced; when the result arrives, Admit compares that stamp
// against the epoch current *now*. A mismatch means the user has navigated
// away since the task was issued, and the result is discarded. The work
// already done (cache writes in particular) is kept, only the UI-visible
// application is suppressed.
type Controller struct {
	current atomic.Uint64
}

// NewController starts at epoch zero, matching a fresh AppState.
func NewController() *Controller { return &Controller{} }

// Current returns the epoch results are currently admitted under.
func (c *Controller) Current() uint64 { return c.current.Load() }

// Advance records the reducer's epoch after a transition. Epochs only move
// forward; a lagging caller can never roll the gate back.
func (c *Controller) Advance(epoch uint64) {
	for {
		cur := c.current.Load()
		if epoch <= cur {
			return
		}
		if c.current.CompareAndSwap(cur, epoch) {
			return
		}
	}
}

// Admit reports whether a message may still be applied to state.
func (c *Controller) Admit(m Message) bool {
	return m.Epoch == c.current.Load()
}
