package log

import (
	"testing"
	"time"
)

// recordingLogger records events for testing.
type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.events = append(r.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	multi := NewMultiLogger(a, nil, b)

	if multi.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (nil skipped)", multi.Len())
	}

	multi.Log(admissionEvent(time.Now(), 5, "QUEUED"))

	for i, rl := range []*recordingLogger{a, b} {
		if len(rl.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(rl.events))
			continue
		}
		if rl.events[0].Admission.PacketID != 5 {
			t.Errorf("logger %d: PacketID = %d", i, rl.events[0].Admission.PacketID)
		}
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	// Must not panic
	NewMultiLogger().Log(Event{})
	NoopLogger{}.Log(Event{})
}
