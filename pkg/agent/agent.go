// Package agent drives the architect iteration loop: call the vision model,
// dispatch the tool calls it requests, feed the results back, and stop when
// the model signals completion or the iteration budget runs out.
package agent

import (
	"context"
	"time"

	"github.com/cexll/architect-go/pkg/event"
	modelpkg "github.com/cexll/architect-go/pkg/model"
	"github.com/cexll/architect-go/pkg/session"
	"github.com/cexll/architect-go/pkg/tool"
)

const (
	// DefaultMaxIterations bounds the model round-trips per run.
	DefaultMaxIterations = 10
	// DefaultCompletionMarker is the substring that marks a finished task.
	DefaultCompletionMarker = "TASK COMPLETE"

	defaultStreamBuffer = 8
	minStreamBuffer     = 2
	maxStreamBuffer     = 64
)

// Config assembles the collaborators of a Controller.
type Config struct {
	// Model produces assistant turns. When it also implements
	// model.ModelWithTools the registry schemas are passed along.
	Model modelpkg.Model
	// Tools resolves and executes the tool calls the model emits.
	Tools *tool.Registry
	// Session optionally persists the transcript. Nil disables persistence.
	Session session.Session
	// System is the system prompt prepended to every model call.
	System string
	// MaxIterations caps model round-trips. Every model call, including the
	// ones that only dispatch tools, consumes one unit.
	MaxIterations int
	// CompletionMarker overrides DefaultCompletionMarker when non-empty.
	CompletionMarker string
	// Timeout bounds the whole run. Zero means no deadline.
	Timeout time.Duration
	// StreamBuffer sizes the event channel used by RunStream.
	StreamBuffer int
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.Model == nil {
		return configErr("model is required")
	}
	if c.MaxIterations < 0 {
		return configErr("max iterations must not be negative, got %d", c.MaxIterations)
	}
	return nil
}

func (c Config) maxIterations() int {
	if c.MaxIterations == 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) completionMarker() string {
	if c.CompletionMarker == "" {
		return DefaultCompletionMarker
	}
	return c.CompletionMarker
}

func (c Config) streamBuffer() int {
	size := c.StreamBuffer
	if size == 0 {
		size = defaultStreamBuffer
	}
	if size < minStreamBuffer {
		return minStreamBuffer
	}
	if size > maxStreamBuffer {
		return maxStreamBuffer
	}
	return size
}

// ToolCall records one dispatched tool invocation.
type ToolCall struct {
	ID       string
	Name     string
	Params   map[string]any
	Output   string
	Error    string
	Duration time.Duration
}

// RunResult is the aggregate outcome of a run.
type RunResult struct {
	// RunID identifies the run across events and the session transcript.
	RunID string
	// Output is the final assistant message content.
	Output string
	// StopReason is "complete", "budget_exceeded", or "error".
	StopReason string
	// Iterations counts the model round-trips consumed.
	Iterations int
	// ToolCalls lists every dispatched tool invocation in order.
	ToolCalls []ToolCall
	// Events holds the full event trace of the run.
	Events []event.Event
	// Messages is the final transcript, initial input included.
	Messages []modelpkg.Message
	// Usage sums the provider-reported token counts across every model
	// round-trip, falling back to a rune-count estimate when the backend
	// reported none.
	Usage modelpkg.TokenUsage
}

// Hook observes run milestones. Implementations must be safe for reuse
// across runs.
type Hook interface {
	PreRun(ctx context.Context, messages []modelpkg.Message) error
	PostRun(ctx context.Context, result *RunResult) error
	PreToolCall(ctx context.Context, name string, params map[string]any) error
	PostToolCall(ctx context.Context, name string, call ToolCall) error
}

// NopHook implements Hook with no-ops, convenient for embedding.
type NopHook struct{}

func (NopHook) PreRun(context.Context, []modelpkg.Message) error          { return nil }
func (NopHook) PostRun(context.Context, *RunResult) error                 { return nil }
func (NopHook) PreToolCall(context.Context, string, map[string]any) error { return nil }
func (NopHook) PostToolCall(context.Context, string, ToolCall) error      { return nil }
