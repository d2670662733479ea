package gate

import (
	"time"

	twlog "github.com/mesh-radio/txwindow/pkg/log"
	"github.com/mesh-radio/txwindow/pkg/stats"
	"github.com/mesh-radio/txwindow/pkg/wire"
)

// ProtocolHandler serves remote window commands against a gate.
type ProtocolHandler struct {
	gate *Gate
}

// NewProtocolHandler creates a handler for g.
func NewProtocolHandler(g *Gate) *ProtocolHandler {
	return &ProtocolHandler{gate: g}
}

// HandleFrame decodes a request, executes it and returns the encoded
// response. Undecodable requests are answered with StatusInvalidMessage,
// carrying the message ID if it could be read. It returns nil only if the
// response itself cannot be encoded.
func (h *ProtocolHandler) HandleFrame(data []byte) []byte {
	req, err := wire.DecodeRequest(data)
	var resp *wire.Response
	if err != nil {
		resp = &wire.Response{
			MessageID: wire.PeekMessageID(data),
			Status:    wire.StatusInvalidMessage,
			Message:   err.Error(),
		}
		h.gate.debugLog("protocol: invalid request", "error", err)
	} else {
		resp = h.HandleRequest(req)
	}

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		h.gate.debugLog("protocol: failed to encode response", "error", err)
		return nil
	}
	return out
}

// HandleRequest executes a decoded request.
func (h *ProtocolHandler) HandleRequest(req *wire.Request) *wire.Response {
	start := time.Now()
	resp := h.execute(req)
	h.gate.LogCommand(twlog.SourceRemote, req.Command.String(), req.MessageID,
		resp.Status.String(), time.Since(start))
	return resp
}

func (h *ProtocolHandler) execute(req *wire.Request) *wire.Response {
	resp := &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess}

	if !req.Command.IsValid() {
		resp.Status = wire.StatusInvalidCommand
		return resp
	}
	if req.Command.NeedsDuration() && req.DurationSecs == 0 {
		resp.Status = wire.StatusInvalidParameter
		resp.Message = "duration must be positive"
		return resp
	}

	switch req.Command {
	case wire.CmdGetStatus:
		resp.Window = WindowStatusToWire(h.gate.Status())

	case wire.CmdGetStatistics:
		resp.Stats = StatisticsToWire(h.gate.Statistics())

	case wire.CmdForceOpen, wire.CmdForceClose:
		d := time.Duration(req.DurationSecs) * time.Second
		var err error
		if req.Command == wire.CmdForceOpen {
			err = h.gate.ForceOpen(d)
		} else {
			err = h.gate.ForceClose(d)
		}
		if err != nil {
			resp.Status = wire.StatusInvalidParameter
			resp.Message = err.Error()
			return resp
		}
		resp.Window = WindowStatusToWire(h.gate.Status())

	case wire.CmdResetStatistics:
		h.gate.ResetStatistics()

	case wire.CmdClearQueue:
		h.gate.ClearQueue()
	}

	return resp
}

// WindowStatusToWire converts a Status to its wire form.
func WindowStatusToWire(s Status) *wire.WindowStatus {
	ws := &wire.WindowStatus{
		IsOpen:         s.Open,
		QueuedPackets:  uint32(s.Queued),
		DroppedPackets: s.Dropped,
		Mode:           uint8(s.Mode),
		Enabled:        s.Enabled,
		Start:          uint16(s.Start),
		End:            uint16(s.End),
	}
	if !s.NextTransition.IsZero() {
		ws.NextChange = s.NextTransition.Unix()
	}
	if s.Override != nil {
		ws.Override = wire.OverrideForcedClosed
		if s.Override.ForcedOpen {
			ws.Override = wire.OverrideForcedOpen
		}
	}
	return ws
}

// StatisticsToWire converts a statistics snapshot to its wire form.
// TotalDelayed counts packets that waited in the queue and left it.
func StatisticsToWire(s stats.Statistics) *wire.WindowStatistics {
	return &wire.WindowStatistics{
		TotalQueued:      s.TotalQueued,
		TotalDropped:     s.TotalDropped,
		TotalDelayed:     s.TotalDequeued,
		AvgQueueTimeMs:   uint64(s.AvgQueueTime().Milliseconds()),
		MaxQueueTimeMs:   uint64(s.MaxQueueTime.Milliseconds()),
		QueueOverflows:   s.OverflowCount,
		TotalExpired:     s.TotalExpired,
		TotalTransmitted: s.TotalTransmitted,
	}
}
