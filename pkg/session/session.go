// Package session persists the message transcript accumulated by a run,
// either in memory or durably on disk through the journal.
package session

import (
	"errors"
	"time"
)

var (
	// ErrInvalidSessionID reports an empty or malformed session identifier.
	ErrInvalidSessionID = errors.New("session: invalid session id")
	// ErrInvalidMessage reports a message that cannot be persisted.
	ErrInvalidMessage = errors.New("session: invalid message")
	// ErrSessionClosed reports use after Close.
	ErrSessionClosed = errors.New("session: closed")
)

// ToolCall captures an assistant-triggered tool invocation that should be
// replayable.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    any            `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// Message represents a single conversational turn persisted in a session.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Filter constrains the message subset returned by Session.List.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Role      string
	Limit     int
	Offset    int
}

// Session stores an ordered, append-only transcript.
type Session interface {
	ID() string
	Append(msg Message) error
	List(filter Filter) ([]Message, error)
	Close() error
}

func cloneMessage(msg Message) Message {
	clone := msg
	clone.ToolCalls = cloneToolCalls(msg.ToolCalls)
	return clone
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		out[i] = cloneMessage(msg)
	}
	return out
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	copy(out, calls)
	return out
}

func matches(msg Message, filter Filter, start, end *time.Time) bool {
	if filter.Role != "" && msg.Role != filter.Role {
		return false
	}
	if start != nil && msg.Timestamp.Before(*start) {
		return false
	}
	if end != nil && msg.Timestamp.After(*end) {
		return false
	}
	return true
}

func applyFilter(msgs []Message, filter Filter) []Message {
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	limit := filter.Limit
	if limit < 0 {
		limit = 0
	}
	var start, end *time.Time
	if filter.StartTime != nil {
		t := filter.StartTime.UTC()
		start = &t
	}
	if filter.EndTime != nil {
		t := filter.EndTime.UTC()
		end = &t
	}
	var (
		result  []Message
		skipped int
	)
	for _, msg := range msgs {
		if !matches(msg, filter, start, end) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, cloneMessage(msg))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
