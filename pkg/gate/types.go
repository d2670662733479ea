package gate

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mesh-radio/txwindow/pkg/clock"
	"github.com/mesh-radio/txwindow/pkg/drain"
	twlog "github.com/mesh-radio/txwindow/pkg/log"
	"github.com/mesh-radio/txwindow/pkg/override"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/stats"
	"github.com/mesh-radio/txwindow/pkg/window"
)

// DefaultTickInterval is how often Run evaluates the window.
const DefaultTickInterval = 5 * time.Second

// Gate errors.
var (
	// ErrTransmitFailure wraps transmit errors. It is the same value as
	// drain.ErrTransmitFailure so callers can test either.
	ErrTransmitFailure = drain.ErrTransmitFailure

	// ErrInvalidDuration is returned for non-positive override durations,
	// after any active override has been cleared.
	ErrInvalidDuration = errors.New("override duration must be positive")

	// ErrNilTransmitter is returned by New without a transmitter.
	ErrNilTransmitter = errors.New("transmitter is required")
)

// Options configures a Gate. The zero value is usable.
type Options struct {
	// Clock is the time source. Nil means the wall clock.
	Clock clock.Clock

	// Budget bounds each drain pass. Zero fields take the drain defaults.
	Budget drain.Budget

	// TickInterval is the Run period. Zero means DefaultTickInterval.
	TickInterval time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLogger receives decision log events. Nil disables the log.
	EventLogger twlog.Logger

	// NodeName is copied into every decision log event.
	NodeName string

	// RunID identifies this gate in the decision log. Empty means a new
	// random UUID.
	RunID string
}

// Status is the administrative view of the gate.
type Status struct {
	// Open is the effective window state.
	Open bool

	// Enabled mirrors the configuration.
	Enabled bool

	// NextTransition is the next state change: the override expiry while
	// an override is active, else the next scheduled edge. Zero if none.
	NextTransition time.Time

	Queued   int
	Capacity int

	// Dropped is the total drop count.
	Dropped uint64

	Mode  window.Mode
	Start window.TimeOfDay
	End   window.TimeOfDay

	// Override is the active override, nil if none.
	Override *override.State
}

// EventType identifies a gate event.
type EventType uint8

const (
	// EventWindowOpened - the effective window opened.
	EventWindowOpened EventType = iota

	// EventWindowClosed - the effective window closed.
	EventWindowClosed

	// EventOverrideSet - a force-open or force-close was applied.
	EventOverrideSet

	// EventOverrideCleared - an override was cleared by command.
	EventOverrideCleared

	// EventOverrideExpired - an override ran out.
	EventOverrideExpired

	// EventPacketQueued - a packet entered the queue.
	EventPacketQueued

	// EventPacketDropped - a packet was discarded.
	EventPacketDropped

	// EventPacketExpired - a queued packet aged out.
	EventPacketExpired

	// EventDrainCompleted - a drain pass sent or expired something.
	EventDrainCompleted

	// EventConfigChanged - the window configuration was replaced.
	EventConfigChanged
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventWindowOpened:
		return "WINDOW_OPENED"
	case EventWindowClosed:
		return "WINDOW_CLOSED"
	case EventOverrideSet:
		return "OVERRIDE_SET"
	case EventOverrideCleared:
		return "OVERRIDE_CLEARED"
	case EventOverrideExpired:
		return "OVERRIDE_EXPIRED"
	case EventPacketQueued:
		return "PACKET_QUEUED"
	case EventPacketDropped:
		return "PACKET_DROPPED"
	case EventPacketExpired:
		return "PACKET_EXPIRED"
	case EventDrainCompleted:
		return "DRAIN_COMPLETED"
	case EventConfigChanged:
		return "CONFIG_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Event is a gate notification.
type Event struct {
	// Type is the event type.
	Type EventType

	// Time is the gate clock reading when the event occurred.
	Time time.Time

	// Packet is set for packet events.
	Packet *packet.Packet

	// Reason is set for EventPacketDropped.
	Reason stats.DropReason

	// Override is set for override events.
	Override override.State

	// Drain is set for EventDrainCompleted.
	Drain *drain.Result

	// Config is set for EventConfigChanged.
	Config window.Config
}

// EventHandler handles gate events. Handlers run synchronously after the
// gate lock is released, in registration order.
type EventHandler func(Event)
