// Package queue implements the bounded priority queue that holds outbound
// packets while the transmit window is closed.
//
// # Ordering
//
// Entries dequeue by descending priority. Among equal priorities the entry
// with the smallest sequence number (the earliest enqueued) goes first.
// Sequence numbers are assigned at enqueue and never reused, which makes the
// order total and deterministic.
//
// # Capacity
//
// The queue never holds more than its capacity. Enqueue into a full queue
// rejects the incoming packet with ErrOverflow; stored entries are never
// evicted to make room.
//
// # Expiry
//
// SweepExpired removes every entry that has waited at least the configured
// expiry. Callers sweep before each drain so that no stale packet is sent.
//
// # Ownership
//
// From Enqueue until Dequeue, SweepExpired or Clear, the queue is the only
// owner of an entry's packet. Entries returned by those calls belong to the
// caller.
package queue
