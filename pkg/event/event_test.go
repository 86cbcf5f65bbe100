package event

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEventFillsIdentity(t *testing.T) {
	evt := NewEvent(EventModelCall, "run-1", ModelCallData{Iteration: 2, Messages: 5})
	if evt.ID == "" {
		t.Fatal("event ID empty")
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("timestamp zero")
	}
	if evt.RunID != "run-1" {
		t.Fatalf("run ID = %q", evt.RunID)
	}

	other := NewEvent(EventModelCall, "run-1", nil)
	if other.ID == evt.ID {
		t.Fatalf("IDs collide: %q", evt.ID)
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		typ     EventType
		wantErr string
	}{
		{"progress", EventProgress, ""},
		{"completion", EventCompletion, ""},
		{"empty", EventType(""), "type is empty"},
		{"unknown", EventType("telemetry_flush"), "unknown type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Event{Type: tc.typ}.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestEventJSONShape(t *testing.T) {
	evt := NewEvent(EventToolResult, "run-2", ToolResultData{Name: "write_file", Output: "wrote 12 bytes"})
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != string(EventToolResult) {
		t.Fatalf("type = %v", decoded["type"])
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok || data["name"] != "write_file" {
		t.Fatalf("data = %v", decoded["data"])
	}
}
