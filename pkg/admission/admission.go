// Package admission decides what happens to an outbound packet: transmit it
// now, hold it in the queue, or drop it.
//
// The controller holds no state of its own. Every side effect lands in the
// queue or the statistics recorder it was built with.
package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/mesh-radio/txwindow/pkg/drain"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/queue"
	"github.com/mesh-radio/txwindow/pkg/stats"
	"github.com/mesh-radio/txwindow/pkg/window"
)

// Outcome is the admission verdict.
type Outcome uint8

const (
	// OutcomeTransmit: the window is open; the caller sends the packet.
	OutcomeTransmit Outcome = iota

	// OutcomeQueued: the packet is held until the window opens.
	OutcomeQueued

	// OutcomeDropped: the packet was discarded; see Decision.Reason.
	OutcomeDropped
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeTransmit:
		return "TRANSMIT"
	case OutcomeQueued:
		return "QUEUED"
	case OutcomeDropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// Decision is the result of Admit.
type Decision struct {
	Outcome Outcome

	// Reason is set when Outcome is OutcomeDropped.
	Reason stats.DropReason

	// Priority is the packet's computed priority.
	Priority uint8

	// Entry is the queue entry when Outcome is OutcomeQueued.
	Entry queue.Entry

	// Drain is the backlog pass run ahead of an OutcomeTransmit decision.
	Drain *drain.Result
}

// String returns the outcome, with the drop reason when dropped.
func (d Decision) String() string {
	if d.Outcome == OutcomeDropped {
		return d.Outcome.String() + "(" + d.Reason.String() + ")"
	}
	return d.Outcome.String()
}

// Controller applies the admission policy.
type Controller struct {
	queue     *queue.Queue
	scheduler *drain.Scheduler
	stats     *stats.Recorder
	logger    *slog.Logger
}

// NewController creates an admission controller. The scheduler must drain
// the same queue.
func NewController(q *queue.Queue, sched *drain.Scheduler, rec *stats.Recorder, logger *slog.Logger) *Controller {
	if rec == nil {
		rec = stats.NewRecorder()
	}
	return &Controller{
		queue:     q,
		scheduler: sched,
		stats:     rec,
		logger:    logger,
	}
}

// Admit decides the fate of p given the admission mode in cfg and whether
// the window is effectively open.
//
// When open, a drain pass runs first so the backlog goes out ahead of new
// traffic, and the decision is OutcomeTransmit. The caller owns the actual
// transmit of p.
func (c *Controller) Admit(ctx context.Context, p *packet.Packet, cfg window.Config, open bool, now time.Time) Decision {
	prio := packet.Priority(p)

	if open {
		d := Decision{Outcome: OutcomeTransmit, Priority: prio}
		if c.scheduler != nil && !c.queue.IsEmpty() {
			res := c.scheduler.Drain(ctx, now)
			d.Drain = &res
		}
		c.debugLog("admission: transmit", "packet", p.String(), "priority", prio)
		return d
	}

	switch cfg.Mode {
	case window.ModeQueue:
		entry, err := c.queue.Enqueue(p, prio, now)
		if err != nil {
			// ErrOverflow is the only enqueue failure
			return c.drop(p, prio, stats.DropOverflow)
		}
		c.debugLog("admission: queued",
			"packet", p.String(),
			"priority", prio,
			"queued", c.queue.Len())
		return Decision{Outcome: OutcomeQueued, Priority: prio, Entry: entry}

	case window.ModeReceiveOnly:
		return c.drop(p, prio, stats.DropReceiveOnly)

	default:
		return c.drop(p, prio, stats.DropWindowClosed)
	}
}

func (c *Controller) drop(p *packet.Packet, prio uint8, reason stats.DropReason) Decision {
	c.stats.RecordDropped(reason)
	c.debugLog("admission: dropped", "packet", p.String(), "reason", reason.String())
	return Decision{Outcome: OutcomeDropped, Priority: prio, Reason: reason}
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
