// Package event defines the typed progress events emitted while an
// architect run executes.
package event

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// EventType partitions events by business meaning.
type EventType string

const (
	EventProgress   EventType = "progress"
	EventModelCall  EventType = "model_call"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventCompletion EventType = "completion"
	EventError      EventType = "error"
)

var knownTypes = map[EventType]struct{}{
	EventProgress:   {},
	EventModelCall:  {},
	EventToolCall:   {},
	EventToolResult: {},
	EventCompletion: {},
	EventError:      {},
}

// Event describes one pushed notification.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent constructs an event with ID and timestamp filled in.
func NewEvent(typ EventType, runID string, data any) Event {
	evt := Event{Type: typ, RunID: runID, Data: data}
	if evt.ID == "" {
		evt.ID = newEventID()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	return evt
}

// Validate checks the event against its constraints.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event: type is empty")
	}
	if _, ok := knownTypes[e.Type]; !ok {
		return fmt.Errorf("event: unknown type %q", e.Type)
	}
	return nil
}

func newEventID() string {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}

// ProgressData describes a stage change in a long-running run.
type ProgressData struct {
	Stage   string         `json:"stage"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ModelCallData describes one model round-trip.
type ModelCallData struct {
	Iteration int `json:"iteration"`
	Messages  int `json:"messages"`
}

// ToolCallData describes one requested tool invocation.
type ToolCallData struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// ToolResultData describes the outcome of a tool invocation.
type ToolResultData struct {
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// CompletionData summarizes the final outcome of a run.
type CompletionData struct {
	Output     string `json:"output"`
	StopReason string `json:"stop_reason"`
	Iterations int    `json:"iterations"`
}

// ErrorData is a monitoring-friendly error representation.
type ErrorData struct {
	Message     string `json:"message"`
	Kind        string `json:"kind,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
}
