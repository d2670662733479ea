// Package override implements temporary forced window states.
//
// An administrator can force the transmit window open or closed for a
// limited time, regardless of the configured daily window. The override
// replaces any previous override and expires on its own.
//
// # Expiry
//
// Expiry is checked lazily: there is no timer goroutine. The override is
// considered gone as soon as now >= ExpiresAt and is cleared the next time
// the effective state is evaluated.
//
// # Replacement
//
// ForceOpen, ForceClose and Clear each replace the current override. A zero
// or negative duration means "no override", so ForceOpen(now, 0) clears.
package override
