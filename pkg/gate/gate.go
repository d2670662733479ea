package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-radio/txwindow/pkg/admission"
	"github.com/mesh-radio/txwindow/pkg/clock"
	"github.com/mesh-radio/txwindow/pkg/drain"
	twlog "github.com/mesh-radio/txwindow/pkg/log"
	"github.com/mesh-radio/txwindow/pkg/override"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/queue"
	"github.com/mesh-radio/txwindow/pkg/stats"
	"github.com/mesh-radio/txwindow/pkg/window"
)

// ErrNilPacket is returned by Submit for a nil packet.
var ErrNilPacket = errors.New("nil packet")

// Transition causes recorded in the decision log.
const (
	causeSchedule = "SCHEDULE"
	causeOverride = "OVERRIDE"
	causeConfig   = "CONFIG"
)

// Gate owns the window configuration, override, queue and statistics of one
// radio, and serializes every evaluate-decide-mutate step under one mutex.
type Gate struct {
	mu sync.Mutex

	cfg       window.Config
	clock     clock.Clock
	tx        drain.Transmitter
	queue     *queue.Queue
	stats     *stats.Recorder
	override  *override.Controller
	scheduler *drain.Scheduler
	admission *admission.Controller

	tickInterval time.Duration
	logger       *slog.Logger
	eventLog     twlog.Logger
	runID        string
	nodeName     string

	// Effective state at the last evaluation
	open bool

	handlers []EventHandler

	// Events raised under mu, dispatched after unlock
	pending []Event
}

// New creates a gate for cfg that sends through tx. The configuration gets
// queue defaults applied and is validated.
func New(cfg window.Config, tx drain.Transmitter, opts Options) (*Gate, error) {
	if tx == nil {
		return nil, ErrNilTransmitter
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.EventLogger == nil {
		opts.EventLogger = twlog.NoopLogger{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	// The queue exists in every mode so that switching to QUEUE later
	// does not need a rebuild.
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = window.DefaultCapacity
	}

	rec := stats.NewRecorder()
	q, err := queue.New(capacity, cfg.Expiry, rec)
	if err != nil {
		return nil, err
	}

	sched := drain.NewScheduler(q, tx, rec, drain.Config{
		Budget: opts.Budget,
		Clock:  opts.Clock,
		Logger: opts.Logger,
	})

	g := &Gate{
		cfg:          cfg,
		clock:        opts.Clock,
		tx:           tx,
		queue:        q,
		stats:        rec,
		override:     override.NewController(),
		scheduler:    sched,
		admission:    admission.NewController(q, sched, rec, opts.Logger),
		tickInterval: opts.TickInterval,
		logger:       opts.Logger,
		eventLog:     opts.EventLogger,
		runID:        opts.RunID,
		nodeName:     opts.NodeName,
	}

	// Runs inside Effective, which is only called with mu held
	g.override.OnExpiry(g.overrideExpiredLocked)

	g.open = window.IsOpenAt(cfg, g.clock.Now())
	return g, nil
}

// OnEvent registers an event handler.
func (g *Gate) OnEvent(handler EventHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, handler)
}

// RunID returns the decision log run identifier.
func (g *Gate) RunID() string {
	return g.runID
}

// TickInterval returns the Run period.
func (g *Gate) TickInterval() time.Duration {
	return g.tickInterval
}

// Budget returns the per-pass drain budget.
func (g *Gate) Budget() drain.Budget {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scheduler.Budget()
}

// Submit runs admission for an outbound packet. When the decision is
// OutcomeTransmit the backlog is drained first and then p is sent; a send
// failure is returned wrapped in ErrTransmitFailure. Queued and dropped
// packets return a nil error.
func (g *Gate) Submit(ctx context.Context, p *packet.Packet) (admission.Decision, error) {
	if p == nil {
		return admission.Decision{}, ErrNilPacket
	}

	g.mu.Lock()
	defer g.unlockAndDispatch()

	now := g.clock.Now()
	open := g.evaluateLocked(now, causeSchedule)

	d := g.admission.Admit(ctx, p, g.cfg, open, now)
	if d.Drain != nil {
		g.recordDrainLocked(now, *d.Drain)
	}

	var err error
	switch d.Outcome {
	case admission.OutcomeTransmit:
		if txErr := g.tx.Transmit(ctx, p); txErr != nil {
			err = fmt.Errorf("%w: %w", ErrTransmitFailure, txErr)
			g.debugLog("gate: transmit failed", "packet", p.String(), "error", txErr)
		}
	case admission.OutcomeQueued:
		g.emitLocked(Event{Type: EventPacketQueued, Time: now, Packet: p})
	case admission.OutcomeDropped:
		g.emitLocked(Event{Type: EventPacketDropped, Time: now, Packet: p, Reason: d.Reason})
	}

	g.logAdmissionLocked(now, p, d, open)
	return d, err
}

// Tick is the periodic entry point. While the effective window is open it
// runs a drain pass; while closed it only sweeps expired entries. It
// returns the number of packets transmitted.
func (g *Gate) Tick(ctx context.Context) int {
	g.mu.Lock()
	defer g.unlockAndDispatch()

	now := g.clock.Now()
	if g.evaluateLocked(now, causeSchedule) {
		res := g.scheduler.Drain(ctx, now)
		g.recordDrainLocked(now, res)
		return res.Transmitted
	}

	g.recordExpiredLocked(now, g.queue.SweepExpired(now))
	return 0
}

// Run calls Tick immediately and then every TickInterval until ctx is
// done. It returns ctx.Err().
func (g *Gate) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.tickInterval)
	defer ticker.Stop()

	g.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// Status returns the administrative view. Evaluating the window here may
// clear an expired override.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.unlockAndDispatch()

	now := g.clock.Now()
	s := Status{
		Open:           g.evaluateLocked(now, causeSchedule),
		Enabled:        g.cfg.Enabled,
		NextTransition: g.nextTransitionLocked(now),
		Queued:         g.queue.Len(),
		Capacity:       g.queue.Capacity(),
		Dropped:        g.stats.Snapshot().TotalDropped,
		Mode:           g.cfg.Mode,
		Start:          g.cfg.Start,
		End:            g.cfg.End,
	}
	if st, ok := g.override.Active(now); ok {
		s.Override = &st
	}
	return s
}

// IsOpen reports the effective window state now.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.unlockAndDispatch()
	return g.evaluateLocked(g.clock.Now(), causeSchedule)
}

// QueueLength returns the number of queued packets.
func (g *Gate) QueueLength() int {
	return g.queue.Len()
}

// QueuedPackets returns the queued entries in dequeue order.
func (g *Gate) QueuedPackets() []queue.Entry {
	return g.queue.Entries()
}

// Statistics returns a snapshot of the counters.
func (g *Gate) Statistics() stats.Statistics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats.Snapshot()
}

// ForceOpen opens the window for d regardless of the schedule. If that
// opens the window, the backlog is drained before ForceOpen returns. A
// non-positive d clears any override and returns ErrInvalidDuration.
func (g *Gate) ForceOpen(d time.Duration) error {
	return g.forceOverride(true, d)
}

// ForceClose closes the window for d regardless of the schedule. A
// non-positive d clears any override and returns ErrInvalidDuration.
func (g *Gate) ForceClose(d time.Duration) error {
	return g.forceOverride(false, d)
}

func (g *Gate) forceOverride(open bool, d time.Duration) error {
	g.mu.Lock()
	defer g.unlockAndDispatch()

	now := g.clock.Now()
	if d <= 0 {
		// A non-positive duration means no override
		g.clearOverrideLocked(now)
		return ErrInvalidDuration
	}

	action := twlog.OverrideForcedClosed
	if open {
		g.override.ForceOpen(now, d)
		action = twlog.OverrideForcedOpen
	} else {
		g.override.ForceClose(now, d)
	}

	st := override.State{ForcedOpen: open, ExpiresAt: now.Add(d)}
	g.emitLocked(Event{Type: EventOverrideSet, Time: now, Override: st})
	g.logEventLocked(now, twlog.Event{
		Category: twlog.CategoryOverride,
		Override: &twlog.OverrideEvent{Action: action, Duration: d, ExpiresAt: st.ExpiresAt},
	})
	g.debugLog("gate: override set", "override", st.String(), "duration", d)

	g.reevaluateLocked(now, causeOverride)
	return nil
}

// ClearOverride removes any override. It returns true if one was active.
func (g *Gate) ClearOverride() bool {
	g.mu.Lock()
	defer g.unlockAndDispatch()
	return g.clearOverrideLocked(g.clock.Now())
}

func (g *Gate) clearOverrideLocked(now time.Time) bool {
	st, active := g.override.Active(now)
	if !g.override.Clear() {
		return false
	}

	if active {
		g.emitLocked(Event{Type: EventOverrideCleared, Time: now, Override: st})
		g.logEventLocked(now, twlog.Event{
			Category: twlog.CategoryOverride,
			Override: &twlog.OverrideEvent{Action: twlog.OverrideCleared},
		})
	}
	g.reevaluateLocked(now, causeOverride)
	return active
}

// ResetStatistics zeroes every counter.
func (g *Gate) ResetStatistics() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.Reset()
	g.debugLog("gate: statistics reset")
}

// ClearQueue discards every queued packet without sending it and returns
// the number removed. Statistics are kept.
func (g *Gate) ClearQueue() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := g.queue.Clear()
	g.debugLog("gate: queue cleared", "removed", len(removed))
	return len(removed)
}

// Config returns the current window configuration.
func (g *Gate) Config() window.Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// SetConfig replaces the window configuration. The new configuration is
// validated as a whole; on error the previous one stays in force.
func (g *Gate) SetConfig(cfg window.Config) error {
	g.mu.Lock()
	defer g.unlockAndDispatch()
	return g.applyConfigLocked(cfg)
}

// SetEnabled turns the schedule on or off.
func (g *Gate) SetEnabled(enabled bool) error {
	return g.update(func(c *window.Config) { c.Enabled = enabled })
}

// SetWindow sets the window start and end.
func (g *Gate) SetWindow(start, end window.TimeOfDay) error {
	return g.update(func(c *window.Config) {
		c.Start = start
		c.End = end
	})
}

// SetMode sets the closed-window policy.
func (g *Gate) SetMode(m window.Mode) error {
	return g.update(func(c *window.Config) { c.Mode = m })
}

// SetCapacity sets the queue capacity. A value outside
// window.MinCapacity-window.MaxCapacity, or one below the current queue
// length, fails with an error wrapping window.ErrInvalidConfiguration.
func (g *Gate) SetCapacity(n int) error {
	if err := window.ValidateCapacity(n); err != nil {
		return err
	}
	return g.update(func(c *window.Config) { c.Capacity = n })
}

// SetExpiry sets how long a queued packet may wait. It must be at least
// window.MinExpiry.
func (g *Gate) SetExpiry(d time.Duration) error {
	if err := window.ValidateExpiry(d); err != nil {
		return err
	}
	return g.update(func(c *window.Config) { c.Expiry = d })
}

func (g *Gate) update(fn func(*window.Config)) error {
	g.mu.Lock()
	defer g.unlockAndDispatch()

	cfg := g.cfg
	fn(&cfg)
	return g.applyConfigLocked(cfg)
}

func (g *Gate) applyConfigLocked(cfg window.Config) error {
	if cfg.Mode == window.ModeQueue && g.cfg.Mode != window.ModeQueue {
		cfg = cfg.WithDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Capacity is the only step that can fail, so it goes first
	if cfg.Capacity > 0 && cfg.Capacity != g.queue.Capacity() {
		if err := g.queue.SetCapacity(cfg.Capacity); err != nil {
			return fmt.Errorf("%w: %w", window.ErrInvalidConfiguration, err)
		}
	}
	if cfg.Expiry > 0 {
		g.queue.SetExpiry(cfg.Expiry)
	}

	g.cfg = cfg
	now := g.clock.Now()
	g.emitLocked(Event{Type: EventConfigChanged, Time: now, Config: cfg})
	g.debugLog("gate: configuration changed", "config", cfg.String())

	g.reevaluateLocked(now, causeConfig)
	return nil
}

// LogCommand records an administrative command in the decision log.
func (g *Gate) LogCommand(source twlog.CommandSource, command string, messageID uint32, status string, took time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ev := &twlog.CommandEvent{
		Source:    source,
		Command:   command,
		MessageID: messageID,
		Status:    status,
	}
	if took > 0 {
		ev.ProcessingTime = &took
	}
	g.logEventLocked(g.clock.Now(), twlog.Event{Category: twlog.CategoryCommand, Command: ev})
}

// evaluateLocked computes the effective state and raises a transition
// event when it differs from the last evaluation.
func (g *Gate) evaluateLocked(now time.Time, cause string) bool {
	open := g.override.Effective(g.cfg, now)
	if open == g.open {
		return open
	}
	g.open = open

	if _, ok := g.override.Active(now); ok {
		cause = causeOverride
	}

	typ := EventWindowClosed
	if open {
		typ = EventWindowOpened
	}
	g.emitLocked(Event{Type: typ, Time: now})
	g.logEventLocked(now, twlog.Event{
		Category: twlog.CategoryTransition,
		Transition: &twlog.TransitionEvent{
			Open:           open,
			Cause:          cause,
			NextTransition: g.nextTransitionLocked(now),
		},
	})
	g.debugLog("gate: window transition", "open", open, "cause", cause, "queued", g.queue.Len())
	return open
}

// reevaluateLocked is evaluateLocked for administrative changes: a
// closed-to-open transition drains the backlog right away.
func (g *Gate) reevaluateLocked(now time.Time, cause string) {
	wasOpen := g.open
	if g.evaluateLocked(now, cause) && !wasOpen {
		res := g.scheduler.Drain(context.Background(), now)
		g.recordDrainLocked(now, res)
	}
}

func (g *Gate) nextTransitionLocked(now time.Time) time.Time {
	if st, ok := g.override.Active(now); ok {
		return st.ExpiresAt
	}
	return window.NextTransition(g.cfg, now)
}

func (g *Gate) overrideExpiredLocked(expired override.State) {
	g.emitLocked(Event{Type: EventOverrideExpired, Time: expired.ExpiresAt, Override: expired})
	g.logEventLocked(expired.ExpiresAt, twlog.Event{
		Category: twlog.CategoryOverride,
		Override: &twlog.OverrideEvent{Action: twlog.OverrideExpired},
	})
	g.debugLog("gate: override expired", "override", expired.String())
}

func (g *Gate) recordDrainLocked(now time.Time, res drain.Result) {
	g.recordExpiredLocked(now, res.Expired)

	if res.Dropped != nil {
		g.emitLocked(Event{
			Type:   EventPacketDropped,
			Time:   now,
			Packet: res.Dropped.Packet,
			Reason: stats.DropRequeueFailed,
		})
	}

	if res.Transmitted == 0 && len(res.Expired) == 0 && res.Err == nil {
		return
	}

	g.emitLocked(Event{Type: EventDrainCompleted, Time: now, Drain: &res})

	ev := &twlog.DrainEvent{
		Transmitted: res.Transmitted,
		Expired:     len(res.Expired),
		Remaining:   g.queue.Len(),
		StopReason:  res.Reason.String(),
		Dropped:     res.Dropped != nil,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
		if g.logger != nil {
			g.logger.Warn("drain stopped on transmit failure", "error", res.Err, "remaining", ev.Remaining)
		}
	}
	g.logEventLocked(now, twlog.Event{Category: twlog.CategoryDrain, Drain: ev})
}

func (g *Gate) recordExpiredLocked(now time.Time, expired []queue.Entry) {
	for _, e := range expired {
		g.emitLocked(Event{Type: EventPacketExpired, Time: now, Packet: e.Packet})
	}
	if len(expired) > 0 {
		g.debugLog("gate: queued packets expired", "count", len(expired))
	}
}

func (g *Gate) logAdmissionLocked(now time.Time, p *packet.Packet, d admission.Decision, open bool) {
	ev := &twlog.AdmissionEvent{
		PacketID:    p.ID,
		Port:        uint32(p.Port),
		Priority:    d.Priority,
		Outcome:     d.Outcome.String(),
		Open:        open,
		Mode:        g.cfg.Mode.String(),
		QueueLength: g.queue.Len(),
	}
	if d.Outcome == admission.OutcomeDropped {
		ev.Reason = d.Reason.String()
	}
	g.logEventLocked(now, twlog.Event{Category: twlog.CategoryAdmission, Admission: ev})
}

func (g *Gate) logEventLocked(now time.Time, ev twlog.Event) {
	ev.Timestamp = now
	ev.RunID = g.runID
	ev.NodeName = g.nodeName
	g.eventLog.Log(ev)
}

func (g *Gate) emitLocked(ev Event) {
	g.pending = append(g.pending, ev)
}

// unlockAndDispatch releases mu and then delivers the events raised while
// it was held.
func (g *Gate) unlockAndDispatch() {
	events := g.pending
	g.pending = nil
	handlers := g.handlers
	g.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
}

func (g *Gate) debugLog(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
