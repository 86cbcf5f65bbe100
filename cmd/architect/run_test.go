package main

import (
	"testing"

	"github.com/cexll/architect-go/pkg/session"
)

func TestHistoryMessages(t *testing.T) {
	stored := []session.Message{
		{Role: "user", Content: "build the screens"},
		{Role: "assistant", ToolCalls: []session.ToolCall{
			{ID: "c1", Name: "write_file", Arguments: map[string]any{"path": "App.tsx"}},
		}},
		{Role: "tool", Content: "wrote 12 bytes", ToolCalls: []session.ToolCall{
			{ID: "c1", Name: "write_file"},
		}},
	}
	history := historyMessages(stored)
	if len(history) != 3 {
		t.Fatalf("history = %d messages, want 3", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "build the screens" {
		t.Fatalf("history[0] = %+v", history[0])
	}
	call := history[1].ToolCalls
	if len(call) != 1 || call[0].ID != "c1" || call[0].Arguments["path"] != "App.tsx" {
		t.Fatalf("history[1] tool calls = %+v", call)
	}
	if history[2].Role != "tool" || history[2].ToolCalls[0].ID != "c1" {
		t.Fatalf("history[2] = %+v", history[2])
	}
}

func TestHistoryMessagesEmpty(t *testing.T) {
	if got := historyMessages(nil); got != nil {
		t.Fatalf("expected nil history, got %v", got)
	}
}
