package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logJSON(t *testing.T, ev Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(ev)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterAdmission(t *testing.T) {
	ev := admissionEvent(time.Now(), 77, "DROPPED")
	ev.Admission.Reason = "OVERFLOW"

	entry := logJSON(t, ev)

	if entry["category"] != "ADMISSION" {
		t.Errorf("category = %v", entry["category"])
	}
	if entry["packet_id"] != float64(77) {
		t.Errorf("packet_id = %v", entry["packet_id"])
	}
	if entry["reason"] != "OVERFLOW" {
		t.Errorf("reason = %v", entry["reason"])
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestSlogAdapterDrain(t *testing.T) {
	entry := logJSON(t, Event{
		RunID:    "run-1",
		Category: CategoryDrain,
		Drain: &DrainEvent{
			Transmitted: 3,
			Remaining:   2,
			StopReason:  "TRANSMIT_FAILURE",
			Error:       "transmit failed: radio busy",
		},
	})

	if entry["transmitted"] != float64(3) {
		t.Errorf("transmitted = %v", entry["transmitted"])
	}
	if entry["stop_reason"] != "TRANSMIT_FAILURE" {
		t.Errorf("stop_reason = %v", entry["stop_reason"])
	}
	if entry["error"] != "transmit failed: radio busy" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestSlogAdapterOverride(t *testing.T) {
	entry := logJSON(t, Event{
		Category: CategoryOverride,
		Override: &OverrideEvent{
			Action:    OverrideForcedClosed,
			Duration:  time.Minute,
			ExpiresAt: time.Now().Add(time.Minute),
		},
	})
	if entry["action"] != "FORCED_CLOSED" {
		t.Errorf("action = %v", entry["action"])
	}
	if _, ok := entry["expires_at"]; !ok {
		t.Error("expires_at missing")
	}
}
