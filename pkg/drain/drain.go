// Package drain flushes the packet queue to the radio when the transmit
// window opens.
//
// A drain pass first sweeps expired entries, then dequeues in priority order
// until the queue is empty or the per-pass budget (elapsed time, packet
// count) is exhausted. The first transmit failure puts the entry back and
// ends the pass, so a failing radio is retried on the next tick instead of
// being hammered in a loop.
//
// The time budget is checked between packets. A single Transmit call is
// never interrupted.
package drain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-radio/txwindow/pkg/clock"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/queue"
	"github.com/mesh-radio/txwindow/pkg/stats"
)

// Default per-pass budget.
const (
	DefaultTimeBudget   = 100 * time.Millisecond
	DefaultPacketBudget = 10
)

// ErrTransmitFailure wraps errors returned by a Transmitter.
var ErrTransmitFailure = errors.New("transmit failed")

// Transmitter sends a packet over the radio. Transmit takes ownership of
// the packet whether or not it succeeds, except that a failed packet handed
// over by a drain pass is put back in the queue.
type Transmitter interface {
	Transmit(ctx context.Context, p *packet.Packet) error
}

// TransmitFunc adapts a function to the Transmitter interface.
type TransmitFunc func(ctx context.Context, p *packet.Packet) error

// Transmit calls f(ctx, p).
func (f TransmitFunc) Transmit(ctx context.Context, p *packet.Packet) error {
	return f(ctx, p)
}

// Budget bounds a single drain pass.
type Budget struct {
	// Time is the maximum elapsed time before no further packet is started.
	Time time.Duration

	// Packets is the maximum number of packets sent per pass.
	Packets int
}

// DefaultBudget returns the default per-pass budget.
func DefaultBudget() Budget {
	return Budget{Time: DefaultTimeBudget, Packets: DefaultPacketBudget}
}

// StopReason says why a drain pass ended.
type StopReason uint8

const (
	// StopEmpty: the queue was emptied.
	StopEmpty StopReason = iota

	// StopPacketBudget: the packet budget was used up.
	StopPacketBudget

	// StopTimeBudget: the time budget was used up.
	StopTimeBudget

	// StopTransmitFailure: a transmit failed.
	StopTransmitFailure

	// StopCancelled: the context was cancelled.
	StopCancelled
)

// String returns a human-readable reason name.
func (r StopReason) String() string {
	switch r {
	case StopEmpty:
		return "EMPTY"
	case StopPacketBudget:
		return "PACKET_BUDGET"
	case StopTimeBudget:
		return "TIME_BUDGET"
	case StopTransmitFailure:
		return "TRANSMIT_FAILURE"
	case StopCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Result describes a drain pass.
type Result struct {
	// Transmitted is the number of packets sent.
	Transmitted int

	// Expired lists the entries removed by the initial sweep.
	Expired []queue.Entry

	// Reason is why the pass ended.
	Reason StopReason

	// Err is the transmit error, wrapped in ErrTransmitFailure, if any.
	Err error

	// Dropped is the failed entry when it could not be put back.
	Dropped *queue.Entry
}

// Scheduler runs drain passes over a queue.
type Scheduler struct {
	queue  *queue.Queue
	tx     Transmitter
	stats  *stats.Recorder
	clock  clock.Clock
	budget Budget
	logger *slog.Logger
}

// Config configures a Scheduler.
type Config struct {
	Budget Budget

	// Clock measures elapsed time; nil means the system clock.
	Clock clock.Clock

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// NewScheduler creates a drain scheduler. Zero budget fields take the defaults.
func NewScheduler(q *queue.Queue, tx Transmitter, rec *stats.Recorder, cfg Config) *Scheduler {
	if cfg.Budget.Time <= 0 {
		cfg.Budget.Time = DefaultTimeBudget
	}
	if cfg.Budget.Packets <= 0 {
		cfg.Budget.Packets = DefaultPacketBudget
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if rec == nil {
		rec = stats.NewRecorder()
	}
	return &Scheduler{
		queue:  q,
		tx:     tx,
		stats:  rec,
		clock:  cfg.Clock,
		budget: cfg.Budget,
		logger: cfg.Logger,
	}
}

// Budget returns the per-pass budget.
func (s *Scheduler) Budget() Budget {
	return s.budget
}

// SetBudget replaces the per-pass budget. Zero fields take the defaults.
func (s *Scheduler) SetBudget(b Budget) {
	if b.Time <= 0 {
		b.Time = DefaultTimeBudget
	}
	if b.Packets <= 0 {
		b.Packets = DefaultPacketBudget
	}
	s.budget = b
}

// Drain runs one pass: sweep expired entries at now, then transmit queued
// packets in priority order within the budget.
func (s *Scheduler) Drain(ctx context.Context, now time.Time) Result {
	var res Result
	res.Expired = s.queue.SweepExpired(now)
	if len(res.Expired) > 0 {
		s.debugLog("drain: swept expired entries", "count", len(res.Expired))
	}

	start := s.clock.Now()
	for {
		if s.queue.IsEmpty() {
			res.Reason = StopEmpty
			break
		}
		if res.Transmitted >= s.budget.Packets {
			res.Reason = StopPacketBudget
			break
		}
		if s.clock.Now().Sub(start) >= s.budget.Time {
			res.Reason = StopTimeBudget
			break
		}
		if ctx.Err() != nil {
			res.Reason = StopCancelled
			break
		}

		entry, ok := s.queue.Take()
		if !ok {
			res.Reason = StopEmpty
			break
		}

		if err := s.tx.Transmit(ctx, entry.Packet); err != nil {
			res.Reason = StopTransmitFailure
			res.Err = fmt.Errorf("%w: %w", ErrTransmitFailure, err)

			if rqErr := s.queue.Requeue(entry); rqErr != nil {
				s.stats.RecordDropped(stats.DropRequeueFailed)
				dropped := entry
				res.Dropped = &dropped
				s.debugLog("drain: requeue failed, packet dropped",
					"packet", entry.Packet.String(), "error", rqErr)
			}
			s.debugLog("drain: transmit failed, stopping pass",
				"packet", entry.Packet.String(), "error", err)
			break
		}

		s.stats.RecordDequeued(entry.Age(s.clock.Now()))
		s.stats.RecordTransmitted(entry.Priority)
		res.Transmitted++
	}

	s.debugLog("drain: pass complete",
		"transmitted", res.Transmitted,
		"reason", res.Reason.String(),
		"remaining", s.queue.Len())
	return res
}

func (s *Scheduler) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
