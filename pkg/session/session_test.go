package session

import (
	"errors"
	"testing"
	"time"

	"github.com/cexll/architect-go/pkg/journal"
)

func TestMemorySessionAppendAndList(t *testing.T) {
	sess, err := NewMemorySession("run-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer sess.Close()

	msgs := []Message{
		{Role: "user", Content: "analyze these screens"},
		{Role: "assistant", Content: "plan follows"},
		{Role: "tool", Content: "wrote 10 bytes"},
	}
	for _, msg := range msgs {
		if err := sess.Append(msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := sess.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, msg := range all {
		if msg.ID == "" {
			t.Errorf("message %d has no ID", i)
		}
		if msg.Timestamp.IsZero() {
			t.Errorf("message %d has no timestamp", i)
		}
	}

	assistants, err := sess.List(Filter{Role: "assistant"})
	if err != nil {
		t.Fatal(err)
	}
	if len(assistants) != 1 || assistants[0].Content != "plan follows" {
		t.Fatalf("role filter = %+v", assistants)
	}

	limited, err := sess.List(Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].Content != "plan follows" {
		t.Fatalf("limit/offset = %+v", limited)
	}
}

func TestMemorySessionValidation(t *testing.T) {
	if _, err := NewMemorySession("  "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID, got %v", err)
	}

	sess, err := NewMemorySession("run-2")
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Append(Message{Content: "no role"}); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.Append(Message{Role: "user"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := sess.List(Filter{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestFileSessionPersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()

	sess, err := NewFileSession("run-3", root, journal.WithDisabledSync())
	if err != nil {
		t.Fatalf("new file session: %v", err)
	}
	toolCall := ToolCall{ID: "call-1", Name: "write_file", Arguments: map[string]any{"path": "App.tsx"}}
	if err := sess.Append(Message{Role: "assistant", ToolCalls: []ToolCall{toolCall}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sess.Append(Message{Role: "tool", Content: "wrote 5 bytes"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileSession("run-3", root, journal.WithDisabledSync())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	msgs, err := reopened.List(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if len(msgs[0].ToolCalls) != 1 || msgs[0].ToolCalls[0].Name != "write_file" {
		t.Fatalf("tool calls not preserved: %+v", msgs[0])
	}

	// New appends continue the ID sequence.
	if err := reopened.Append(Message{Role: "user", Content: "continue"}); err != nil {
		t.Fatal(err)
	}
	msgs, err = reopened.List(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len after append = %d, want 3", len(msgs))
	}
}

func TestFilterTimeWindow(t *testing.T) {
	sess, err := NewMemorySession("run-4")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := sess.Append(Message{Role: "user", Content: "m", Timestamp: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	start := base.Add(30 * time.Minute)
	end := base.Add(90 * time.Minute)
	msgs, err := sess.List(Filter{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("window filter = %d messages, want 1", len(msgs))
	}
}

func TestListReturnsCopies(t *testing.T) {
	sess, err := NewMemorySession("run-5")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if err := sess.Append(Message{Role: "user", Content: "original"}); err != nil {
		t.Fatal(err)
	}
	msgs, err := sess.List(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	msgs[0].Content = "mutated"
	again, err := sess.List(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Content != "original" {
		t.Fatalf("stored message mutated: %q", again[0].Content)
	}
}
