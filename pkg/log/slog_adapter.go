package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes decision events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("category", event.Category.String()),
	}
	if event.NodeName != "" {
		attrs = append(attrs, slog.String("node", event.NodeName))
	}

	switch {
	case event.Admission != nil:
		ev := event.Admission
		attrs = append(attrs,
			slog.Uint64("packet_id", uint64(ev.PacketID)),
			slog.Uint64("priority", uint64(ev.Priority)),
			slog.String("outcome", ev.Outcome),
			slog.Bool("open", ev.Open),
			slog.String("mode", ev.Mode),
			slog.Int("queued", ev.QueueLength),
		)
		if ev.Reason != "" {
			attrs = append(attrs, slog.String("reason", ev.Reason))
		}
	case event.Transition != nil:
		attrs = append(attrs,
			slog.Bool("open", event.Transition.Open),
			slog.String("cause", event.Transition.Cause),
		)
		if !event.Transition.NextTransition.IsZero() {
			attrs = append(attrs, slog.Time("next_transition", event.Transition.NextTransition))
		}
	case event.Override != nil:
		attrs = append(attrs, slog.String("action", event.Override.Action.String()))
		if event.Override.Duration > 0 {
			attrs = append(attrs,
				slog.Duration("duration", event.Override.Duration),
				slog.Time("expires_at", event.Override.ExpiresAt),
			)
		}
	case event.Drain != nil:
		attrs = append(attrs,
			slog.Int("transmitted", event.Drain.Transmitted),
			slog.Int("expired", event.Drain.Expired),
			slog.Int("remaining", event.Drain.Remaining),
			slog.String("stop_reason", event.Drain.StopReason),
		)
		if event.Drain.Error != "" {
			attrs = append(attrs, slog.String("error", event.Drain.Error))
		}
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("source", event.Command.Source.String()),
			slog.String("command", event.Command.Command),
			slog.String("status", event.Command.Status),
		)
		if event.Command.MessageID != 0 {
			attrs = append(attrs, slog.Uint64("msg_id", uint64(event.Command.MessageID)))
		}
		if event.Command.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Command.ProcessingTime))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "txwindow", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
