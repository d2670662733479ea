package wire

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage is returned for requests that fail to decode or validate.
var ErrInvalidMessage = errors.New("invalid message")

// CommandType identifies a remote command.
type CommandType uint8

const (
	CmdGetStatus       CommandType = 1
	CmdGetStatistics   CommandType = 2
	CmdForceOpen       CommandType = 3
	CmdForceClose      CommandType = 4
	CmdResetStatistics CommandType = 5
	CmdClearQueue      CommandType = 6
)

// String returns the command name.
func (c CommandType) String() string {
	switch c {
	case CmdGetStatus:
		return "GET_STATUS"
	case CmdGetStatistics:
		return "GET_STATS"
	case CmdForceOpen:
		return "FORCE_OPEN"
	case CmdForceClose:
		return "FORCE_CLOSE"
	case CmdResetStatistics:
		return "RESET_STATS"
	case CmdClearQueue:
		return "CLEAR_QUEUE"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether c is a known command.
func (c CommandType) IsValid() bool {
	return c >= CmdGetStatus && c <= CmdClearQueue
}

// NeedsDuration reports whether the command takes DurationSecs.
func (c CommandType) NeedsDuration() bool {
	return c == CmdForceOpen || c == CmdForceClose
}

// Request is a remote command.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, nonzero
//	  2: command,      // uint8
//	  3: durationSecs  // uint32, force commands only
//	}
type Request struct {
	MessageID    uint32      `cbor:"1,keyasint"`
	Command      CommandType `cbor:"2,keyasint"`
	DurationSecs uint32      `cbor:"3,keyasint,omitempty"`
}

// Validate checks the message envelope. Parameter ranges are checked by the
// handler so that it can answer with StatusInvalidParameter.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("%w: messageId 0 is reserved", ErrInvalidMessage)
	}
	return nil
}

// OverrideKind is the override state in a status response.
type OverrideKind uint8

const (
	OverrideNone         OverrideKind = 0
	OverrideForcedOpen   OverrideKind = 1
	OverrideForcedClosed OverrideKind = 2
)

// String returns the override kind name.
func (o OverrideKind) String() string {
	switch o {
	case OverrideNone:
		return "NONE"
	case OverrideForcedOpen:
		return "FORCED_OPEN"
	case OverrideForcedClosed:
		return "FORCED_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// WindowStatus answers GET_STATUS.
type WindowStatus struct {
	IsOpen bool `cbor:"1,keyasint"`

	// NextChange is the next state change as Unix seconds, 0 if none.
	NextChange int64 `cbor:"2,keyasint"`

	QueuedPackets  uint32 `cbor:"3,keyasint"`
	DroppedPackets uint64 `cbor:"4,keyasint"`

	// Mode is the admission mode (0 drop, 1 queue, 2 receive-only).
	Mode uint8 `cbor:"5,keyasint"`

	Override OverrideKind `cbor:"6,keyasint,omitempty"`
	Enabled  bool         `cbor:"7,keyasint"`

	// Start and End are minutes after midnight.
	Start uint16 `cbor:"8,keyasint"`
	End   uint16 `cbor:"9,keyasint"`
}

// WindowStatistics answers GET_STATS.
type WindowStatistics struct {
	TotalQueued      uint64 `cbor:"1,keyasint"`
	TotalDropped     uint64 `cbor:"2,keyasint"`
	TotalDelayed     uint64 `cbor:"3,keyasint"`
	AvgQueueTimeMs   uint64 `cbor:"4,keyasint"`
	MaxQueueTimeMs   uint64 `cbor:"5,keyasint"`
	QueueOverflows   uint64 `cbor:"6,keyasint"`
	TotalExpired     uint64 `cbor:"7,keyasint"`
	TotalTransmitted uint64 `cbor:"8,keyasint"`
}

// Response answers a Request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // matches request
//	  2: status,       // uint8
//	  3: window,       // GET_STATUS and force commands
//	  4: stats,        // GET_STATS
//	  5: message       // error detail
//	}
type Response struct {
	MessageID uint32            `cbor:"1,keyasint"`
	Status    Status            `cbor:"2,keyasint"`
	Window    *WindowStatus     `cbor:"3,keyasint,omitempty"`
	Stats     *WindowStatistics `cbor:"4,keyasint,omitempty"`
	Message   string            `cbor:"5,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}
