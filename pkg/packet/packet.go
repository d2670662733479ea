// Package packet defines the outbound mesh packet handled by the transmit
// scheduler and the priority assigned to it before queueing.
package packet

import "fmt"

// Reliability is the delivery class requested by the sender.
type Reliability uint8

const (
	// ReliabilityDefault is best-effort delivery.
	ReliabilityDefault Reliability = iota

	// ReliabilityAck requests an acknowledgment from the next hop.
	ReliabilityAck

	// ReliabilityReliable requests end-to-end reliable delivery.
	ReliabilityReliable
)

// String returns a human-readable reliability name.
func (r Reliability) String() string {
	switch r {
	case ReliabilityDefault:
		return "DEFAULT"
	case ReliabilityAck:
		return "ACK"
	case ReliabilityReliable:
		return "RELIABLE"
	default:
		return "UNKNOWN"
	}
}

// PortNum is the application tag of a packet.
type PortNum uint16

// Application tags with scheduling significance.
const (
	PortUnknown     PortNum = 0
	PortTextMessage PortNum = 1
	PortPosition    PortNum = 3
	PortTelemetry   PortNum = 67
	PortEmergency   PortNum = 70
)

// String returns a human-readable port name.
func (p PortNum) String() string {
	switch p {
	case PortUnknown:
		return "UNKNOWN_APP"
	case PortTextMessage:
		return "TEXT_MESSAGE_APP"
	case PortPosition:
		return "POSITION_APP"
	case PortTelemetry:
		return "TELEMETRY_APP"
	case PortEmergency:
		return "EMERGENCY_APP"
	default:
		return fmt.Sprintf("PORT_%d", uint16(p))
	}
}

// ParsePort accepts the console spellings text, position, telemetry and
// emergency.
func ParsePort(s string) (PortNum, bool) {
	switch s {
	case "text":
		return PortTextMessage, true
	case "position", "pos":
		return PortPosition, true
	case "telemetry":
		return PortTelemetry, true
	case "emergency":
		return PortEmergency, true
	}
	return PortUnknown, false
}

// Packet is an outbound mesh packet. Whoever holds the pointer owns it; a
// packet is never held by the queue and the transmit path at the same time.
type Packet struct {
	ID          uint32
	From        uint32
	To          uint32
	Port        PortNum
	WantAck     bool
	Reliability Reliability
	Payload     []byte
}

// String returns a short description for logs.
func (p *Packet) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("#%08x %s %d bytes", p.ID, p.Port, len(p.Payload))
}

// HighPriorityThreshold separates high-priority traffic in statistics:
// priorities above it count as high.
const HighPriorityThreshold = 2

// Priority computes the queue priority of p. Higher values dequeue first.
// Additions saturate at 255. A nil packet has priority 0.
func Priority(p *Packet) uint8 {
	if p == nil {
		return 0
	}

	prio := uint8(1)
	if p.WantAck {
		prio = saturatingAdd(prio, 2)
	}

	switch p.Reliability {
	case ReliabilityReliable:
		prio = saturatingAdd(prio, 3)
	case ReliabilityAck:
		prio = saturatingAdd(prio, 2)
	}

	switch p.Port {
	case PortPosition:
		prio = saturatingAdd(prio, 1)
	case PortEmergency:
		prio = saturatingAdd(prio, 4)
	}

	return prio
}

// IsHighPriority reports whether prio counts as high priority.
func IsHighPriority(prio uint8) bool {
	return prio > HighPriorityThreshold
}

func saturatingAdd(a, b uint8) uint8 {
	if sum := uint16(a) + uint16(b); sum <= 255 {
		return uint8(sum)
	}
	return 255
}
