package log

import (
	"strings"
	"time"
)

// Event is one entry of the decision log.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the gate instance (UUID) that produced the event.
	RunID string `cbor:"2,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"3,keyasint"`

	// NodeName is the optional configured node name.
	NodeName string `cbor:"4,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Admission  *AdmissionEvent  `cbor:"10,keyasint,omitempty"`
	Transition *TransitionEvent `cbor:"11,keyasint,omitempty"`
	Override   *OverrideEvent   `cbor:"12,keyasint,omitempty"`
	Drain      *DrainEvent      `cbor:"13,keyasint,omitempty"`
	Command    *CommandEvent    `cbor:"14,keyasint,omitempty"`
	Error      *ErrorEventData  `cbor:"15,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAdmission is a per-packet admission decision.
	CategoryAdmission Category = 0
	// CategoryTransition is an effective window open/close.
	CategoryTransition Category = 1
	// CategoryOverride is an override change.
	CategoryOverride Category = 2
	// CategoryDrain is a completed drain pass.
	CategoryDrain Category = 3
	// CategoryCommand is an administrative command.
	CategoryCommand Category = 4
	// CategoryError is an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAdmission:
		return "ADMISSION"
	case CategoryTransition:
		return "TRANSITION"
	case CategoryOverride:
		return "OVERRIDE"
	case CategoryDrain:
		return "DRAIN"
	case CategoryCommand:
		return "COMMAND"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String, case-insensitive.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryAdmission; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// AdmissionEvent records the decision for one outbound packet.
type AdmissionEvent struct {
	// PacketID is the packet identifier.
	PacketID uint32 `cbor:"1,keyasint"`

	// Port is the application port number.
	Port uint32 `cbor:"2,keyasint,omitempty"`

	// Priority is the computed priority.
	Priority uint8 `cbor:"3,keyasint"`

	// Outcome is TRANSMIT, QUEUED or DROPPED.
	Outcome string `cbor:"4,keyasint"`

	// Reason is the drop reason, if dropped.
	Reason string `cbor:"5,keyasint,omitempty"`

	// Open is the effective window state at the decision.
	Open bool `cbor:"6,keyasint"`

	// Mode is the admission mode at the decision.
	Mode string `cbor:"7,keyasint"`

	// QueueLength is the queue length after the decision.
	QueueLength int `cbor:"8,keyasint"`
}

// TransitionEvent records the effective window opening or closing.
type TransitionEvent struct {
	// Open is the new effective state.
	Open bool `cbor:"1,keyasint"`

	// Cause is SCHEDULE, OVERRIDE or CONFIG.
	Cause string `cbor:"2,keyasint"`

	// NextTransition is the next scheduled change, if any.
	NextTransition time.Time `cbor:"3,keyasint,omitempty"`
}

// OverrideAction is what happened to the override.
type OverrideAction uint8

const (
	// OverrideForcedOpen: an open override was set.
	OverrideForcedOpen OverrideAction = 0
	// OverrideForcedClosed: a closed override was set.
	OverrideForcedClosed OverrideAction = 1
	// OverrideCleared: the override was cleared by command.
	OverrideCleared OverrideAction = 2
	// OverrideExpired: the override ran out.
	OverrideExpired OverrideAction = 3
)

// String returns the action name.
func (a OverrideAction) String() string {
	switch a {
	case OverrideForcedOpen:
		return "FORCED_OPEN"
	case OverrideForcedClosed:
		return "FORCED_CLOSED"
	case OverrideCleared:
		return "CLEARED"
	case OverrideExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// OverrideEvent records an override change.
type OverrideEvent struct {
	Action OverrideAction `cbor:"1,keyasint"`

	// Duration requested, for FORCED_* actions.
	Duration time.Duration `cbor:"2,keyasint,omitempty"`

	// ExpiresAt is when the override ends, for FORCED_* actions.
	ExpiresAt time.Time `cbor:"3,keyasint,omitempty"`
}

// DrainEvent records a finished drain pass.
type DrainEvent struct {
	// Transmitted is the number of packets sent.
	Transmitted int `cbor:"1,keyasint"`

	// Expired is the number of entries removed by the sweep.
	Expired int `cbor:"2,keyasint,omitempty"`

	// Remaining is the queue length after the pass.
	Remaining int `cbor:"3,keyasint"`

	// StopReason says why the pass ended.
	StopReason string `cbor:"4,keyasint"`

	// Error is the transmit error, if the pass stopped on one.
	Error string `cbor:"5,keyasint,omitempty"`

	// Dropped is set when a failed packet could not be put back.
	Dropped bool `cbor:"6,keyasint,omitempty"`
}

// CommandSource says where an administrative command came from.
type CommandSource uint8

const (
	// SourceLocal is the local console or API.
	SourceLocal CommandSource = 0
	// SourceRemote is a remote protocol message.
	SourceRemote CommandSource = 1
)

// String returns the source name.
func (s CommandSource) String() string {
	switch s {
	case SourceLocal:
		return "LOCAL"
	case SourceRemote:
		return "REMOTE"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent records an administrative command.
type CommandEvent struct {
	Source CommandSource `cbor:"1,keyasint"`

	// Command is the command name.
	Command string `cbor:"2,keyasint"`

	// MessageID correlates remote request and response (0 for local).
	MessageID uint32 `cbor:"3,keyasint,omitempty"`

	// Status is the result status name.
	Status string `cbor:"4,keyasint"`

	// ProcessingTime is the time spent handling the command.
	ProcessingTime *time.Duration `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData records an error.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
