// Package stats records transmit-window counters.
//
// Counters are monotonically non-decreasing until Reset is called. The
// Recorder is safe for concurrent use; Snapshot returns a value copy.
package stats

import (
	"sync"
	"time"

	"github.com/mesh-radio/txwindow/pkg/packet"
)

// DropReason classifies why a packet was discarded.
type DropReason uint8

const (
	// DropWindowClosed: DROP mode while the window was closed.
	DropWindowClosed DropReason = iota

	// DropOverflow: QUEUE mode with a full queue.
	DropOverflow

	// DropReceiveOnly: RECEIVE_ONLY mode while the window was closed.
	DropReceiveOnly

	// DropRequeueFailed: a failed drain transmit could not be put back.
	DropRequeueFailed

	numDropReasons
)

// String returns a human-readable reason name.
func (r DropReason) String() string {
	switch r {
	case DropWindowClosed:
		return "WINDOW_CLOSED"
	case DropOverflow:
		return "OVERFLOW"
	case DropReceiveOnly:
		return "RECEIVE_ONLY"
	case DropRequeueFailed:
		return "REQUEUE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Statistics is a snapshot of the counters.
type Statistics struct {
	TotalQueued   uint64
	TotalDropped  uint64
	TotalExpired  uint64
	OverflowCount uint64

	// Drain results
	TotalDequeued             uint64
	TotalTransmitted          uint64
	HighPriorityTransmitted   uint64
	NormalPriorityTransmitted uint64

	// Time spent queued, measured once per packet when a drain pass sends it
	SumQueueTime time.Duration
	MinQueueTime time.Duration
	MaxQueueTime time.Duration

	// Drops broken down by DropReason
	DroppedByReason [numDropReasons]uint64
}

// AvgQueueTime returns SumQueueTime / TotalDequeued, or 0 if nothing was
// dequeued.
func (s Statistics) AvgQueueTime() time.Duration {
	if s.TotalDequeued == 0 {
		return 0
	}
	return s.SumQueueTime / time.Duration(s.TotalDequeued)
}

// Dropped returns the drop count for a reason.
func (s Statistics) Dropped(reason DropReason) uint64 {
	if reason >= numDropReasons {
		return 0
	}
	return s.DroppedByReason[reason]
}

// Recorder accumulates statistics.
type Recorder struct {
	mu sync.Mutex
	s  Statistics
}

// NewRecorder creates a recorder with zeroed counters.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordQueued counts a successful enqueue.
func (r *Recorder) RecordQueued() {
	r.mu.Lock()
	r.s.TotalQueued++
	r.mu.Unlock()
}

// RecordOverflow counts an enqueue rejected for lack of capacity.
func (r *Recorder) RecordOverflow() {
	r.mu.Lock()
	r.s.OverflowCount++
	r.mu.Unlock()
}

// RecordDropped counts a discarded packet.
func (r *Recorder) RecordDropped(reason DropReason) {
	r.mu.Lock()
	r.s.TotalDropped++
	if reason < numDropReasons {
		r.s.DroppedByReason[reason]++
	}
	r.mu.Unlock()
}

// RecordExpired counts n packets removed by an expiry sweep.
func (r *Recorder) RecordExpired(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.s.TotalExpired += uint64(n)
	r.mu.Unlock()
}

// RecordDequeued records the time an entry spent in the queue.
func (r *Recorder) RecordDequeued(wait time.Duration) {
	if wait < 0 {
		wait = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.s.TotalDequeued == 0 || wait < r.s.MinQueueTime {
		r.s.MinQueueTime = wait
	}
	if wait > r.s.MaxQueueTime {
		r.s.MaxQueueTime = wait
	}
	r.s.SumQueueTime += wait
	r.s.TotalDequeued++
}

// RecordTransmitted counts a queued packet that was sent successfully.
func (r *Recorder) RecordTransmitted(priority uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.s.TotalTransmitted++
	if packet.IsHighPriority(priority) {
		r.s.HighPriorityTransmitted++
	} else {
		r.s.NormalPriorityTransmitted++
	}
}

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}

// Reset zeroes all counters.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.s = Statistics{}
	r.mu.Unlock()
}
