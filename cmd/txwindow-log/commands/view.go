// Package commands implements the txwindow-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/afero"

	twlog "github.com/mesh-radio/txwindow/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event twlog.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [run:%s] %-10s %s\n", ts, shortenRunID(event.RunID), event.Category, typeLabel(event))

	switch {
	case event.Admission != nil:
		formatAdmission(w, event.Admission)
	case event.Transition != nil:
		formatTransition(w, event.Transition)
	case event.Override != nil:
		formatOverride(w, event.Override)
	case event.Drain != nil:
		formatDrain(w, event.Drain)
	case event.Command != nil:
		formatCommand(w, event.Command)
	case event.Error != nil:
		formatError(w, event.Error)
	}
	if event.NodeName != "" {
		fmt.Fprintf(w, "  Node: %s\n", event.NodeName)
	}

	fmt.Fprintln(w)
}

// typeLabel is the short summary shown on the header line.
func typeLabel(event twlog.Event) string {
	switch {
	case event.Admission != nil:
		if event.Admission.Reason != "" {
			return event.Admission.Outcome + "(" + event.Admission.Reason + ")"
		}
		return event.Admission.Outcome
	case event.Transition != nil:
		if event.Transition.Open {
			return "OPENED"
		}
		return "CLOSED"
	case event.Override != nil:
		return event.Override.Action.String()
	case event.Drain != nil:
		return event.Drain.StopReason
	case event.Command != nil:
		return event.Command.Command
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatAdmission(w io.Writer, a *twlog.AdmissionEvent) {
	fmt.Fprintf(w, "  Packet: %d  Port: %d  Priority: %d\n", a.PacketID, a.Port, a.Priority)
	fmt.Fprintf(w, "  Window: %s  Mode: %s  Queue: %d\n", openLabel(a.Open), a.Mode, a.QueueLength)
}

func formatTransition(w io.Writer, tr *twlog.TransitionEvent) {
	fmt.Fprintf(w, "  Cause: %s\n", tr.Cause)
	if !tr.NextTransition.IsZero() {
		fmt.Fprintf(w, "  Next: %s\n", tr.NextTransition.UTC().Format(time.RFC3339))
	}
}

func formatOverride(w io.Writer, o *twlog.OverrideEvent) {
	if o.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", o.Duration)
	}
	if !o.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "  Expires: %s\n", o.ExpiresAt.UTC().Format(time.RFC3339))
	}
}

func formatDrain(w io.Writer, d *twlog.DrainEvent) {
	fmt.Fprintf(w, "  Transmitted: %d  Expired: %d  Remaining: %d\n", d.Transmitted, d.Expired, d.Remaining)
	if d.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", d.Error)
	}
	if d.Dropped {
		fmt.Fprintln(w, "  Failed packet dropped")
	}
}

func formatCommand(w io.Writer, c *twlog.CommandEvent) {
	fmt.Fprintf(w, "  Source: %s  Status: %s\n", c.Source, c.Status)
	if c.MessageID != 0 {
		fmt.Fprintf(w, "  MessageID: %d\n", c.MessageID)
	}
	if c.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*c.ProcessingTime))
	}
}

func formatError(w io.Writer, e *twlog.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

func openLabel(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category name from a command-line flag.
func ParseCategoryFlag(s string) (twlog.Category, error) {
	c, ok := twlog.ParseCategory(s)
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be admission, transition, override, drain, command or error)", s)
	}
	return c, nil
}

// ParsePacketFlag parses a packet ID from a command-line flag.
func ParsePacketFlag(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid packet id: %s", s)
	}
	return uint32(v), nil
}

// RunView prints every event of path matching filter.
func RunView(fs afero.Fs, path string, filter twlog.Filter, output io.Writer) error {
	reader, err := twlog.OpenReader(fs, path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
