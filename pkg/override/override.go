package override

import (
	"sync"
	"time"

	"github.com/mesh-radio/txwindow/pkg/window"
)

// State is an active override.
type State struct {
	// ForcedOpen is true for force-open, false for force-close.
	ForcedOpen bool

	// ExpiresAt is the first instant at which the override no longer applies.
	ExpiresAt time.Time
}

// String returns a human-readable override kind.
func (s State) String() string {
	if s.ForcedOpen {
		return "FORCED_OPEN"
	}
	return "FORCED_CLOSED"
}

// Remaining returns the time left until expiry, or 0 if already expired.
func (s State) Remaining(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Controller holds the optional override.
type Controller struct {
	mu sync.Mutex

	// Current override, nil when none
	state *State

	// Called when an expired override is cleared during evaluation
	onExpiry func(expired State)
}

// NewController creates a controller with no active override.
func NewController() *Controller {
	return &Controller{}
}

// ForceOpen forces the window open for d starting at now.
// Returns false (and clears any override) if d is not positive.
func (c *Controller) ForceOpen(now time.Time, d time.Duration) bool {
	return c.set(true, now, d)
}

// ForceClose forces the window closed for d starting at now.
// Returns false (and clears any override) if d is not positive.
func (c *Controller) ForceClose(now time.Time, d time.Duration) bool {
	return c.set(false, now, d)
}

func (c *Controller) set(open bool, now time.Time, d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.state = nil
		return false
	}

	c.state = &State{
		ForcedOpen: open,
		ExpiresAt:  now.Add(d),
	}
	return true
}

// Clear removes any override. Returns true if one was active.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	had := c.state != nil
	c.state = nil
	return had
}

// Active returns the override in force at now, if any. It does not clear
// an expired override.
func (c *Controller) Active(now time.Time) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil || !now.Before(c.state.ExpiresAt) {
		return State{}, false
	}
	return *c.state, true
}

// Effective returns the window state after applying the override. An
// expired override is cleared and the configured window is evaluated.
func (c *Controller) Effective(cfg window.Config, now time.Time) bool {
	c.mu.Lock()

	if c.state != nil {
		if now.Before(c.state.ExpiresAt) {
			forced := c.state.ForcedOpen
			c.mu.Unlock()
			return forced
		}

		expired := *c.state
		c.state = nil
		expiryFn := c.onExpiry
		c.mu.Unlock()

		// Call callback outside lock
		if expiryFn != nil {
			expiryFn(expired)
		}
		return window.IsOpenAt(cfg, now)
	}

	c.mu.Unlock()
	return window.IsOpenAt(cfg, now)
}

// OnExpiry sets a callback invoked when an expired override is cleared.
func (c *Controller) OnExpiry(fn func(expired State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpiry = fn
}
