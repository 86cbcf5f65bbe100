package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cexll/architect-go/pkg/event"
	modelpkg "github.com/cexll/architect-go/pkg/model"
	"github.com/cexll/architect-go/pkg/session"
	"github.com/cexll/architect-go/pkg/telemetry"
)

// Controller runs the iteration loop described by its Config.
type Controller struct {
	cfg   Config
	hooks []Hook
}

// New constructs a Controller after validating cfg.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

// WithHook returns a copy of the controller with h appended.
func (c *Controller) WithHook(h Hook) *Controller {
	if h == nil {
		return c
	}
	clone := *c
	clone.hooks = append(append([]Hook(nil), c.hooks...), h)
	return &clone
}

// Run executes the loop to completion and returns the aggregate result.
// The messages slice seeds the transcript and must contain at least one
// message.
func (c *Controller) Run(ctx context.Context, messages []modelpkg.Message) (*RunResult, error) {
	ctx, runID, cancel, err := c.setupRun(ctx, messages)
	if err != nil {
		return nil, err
	}
	if cancel != nil {
		defer cancel()
	}
	return c.runWithEmitter(ctx, runID, messages, nil)
}

// RunStream executes the loop while pushing events to the returned channel.
// The channel closes when the run finishes.
func (c *Controller) RunStream(ctx context.Context, messages []modelpkg.Message) (<-chan event.Event, error) {
	ctx, runID, cancel, err := c.setupRun(ctx, messages)
	if err != nil {
		return nil, err
	}
	buffer := c.cfg.streamBuffer()
	ch := make(chan event.Event, buffer)
	dispatcher := newStreamDispatcher(ctx, ch, runID, buffer)

	go func() {
		defer close(ch)
		if cancel != nil {
			defer cancel()
		}
		if err := dispatcher.emit(progressEvent(runID, "started", "run started", nil)); err != nil {
			return
		}
		if _, runErr := c.runWithEmitter(ctx, runID, messages, dispatcher.emit); runErr != nil {
			if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
				dispatcher.pushTerminal(progressEvent(runID, "stopped", runErr.Error(), nil))
			}
		}
	}()

	return ch, nil
}

func (c *Controller) setupRun(ctx context.Context, messages []modelpkg.Message) (context.Context, string, context.CancelFunc, error) {
	if ctx == nil {
		return nil, "", nil, inputErr("context is nil")
	}
	if len(messages) == 0 {
		return nil, "", nil, inputErr("initial messages are empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", nil, err
	}
	runID := uuid.NewString()
	if c.cfg.Timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		return ctx, runID, cancel, nil
	}
	return ctx, runID, nil, nil
}

func (c *Controller) runWithEmitter(ctx context.Context, runID string, initial []modelpkg.Message, emit func(event.Event) error) (_ *RunResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.run")
	defer func() { telemetry.EndSpan(span, err) }()

	result := &RunResult{RunID: runID, StopReason: "complete"}
	appendAndEmit := func(evt event.Event) error {
		result.Events = append(result.Events, evt)
		if emit == nil {
			return nil
		}
		return emit(evt)
	}

	if err := runHooks(c.hooks, false, func(h Hook) error {
		return h.PreRun(ctx, initial)
	}); err != nil {
		return nil, err
	}

	transcript := append([]modelpkg.Message(nil), initial...)
	// A resumed run seeds initial with the session's own replayed transcript;
	// only the messages beyond what the session already holds are appended.
	skip := c.persistedCount()
	for i, msg := range initial {
		if i < skip {
			continue
		}
		c.persist(msg)
	}
	result.Messages = transcript

	marker := c.cfg.completionMarker()
	maxIterations := c.cfg.maxIterations()
	toolDefs := c.toolDefinitions()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		result.Iterations = iteration
		if err := appendAndEmit(event.NewEvent(event.EventModelCall, runID, event.ModelCallData{
			Iteration: iteration,
			Messages:  len(transcript),
		})); err != nil {
			return result, err
		}

		reply, modelErr := c.generate(ctx, transcript, toolDefs)
		if modelErr != nil {
			wrapped := fmt.Errorf("%w: iteration %d: %v", ErrModel, iteration, modelErr)
			result.StopReason = "error"
			if err := appendAndEmit(errorEvent(runID, "model", wrapped, false)); err != nil {
				return result, err
			}
			if err := c.runPostHooks(ctx, result); err != nil {
				wrapped = errors.Join(wrapped, err)
			}
			return result, wrapped
		}

		transcript = append(transcript, reply)
		result.Messages = transcript
		result.Usage = result.Usage.Add(reply.Usage)
		c.persist(reply)

		if len(reply.ToolCalls) > 0 {
			toolMessages, records, dispatchErr := c.dispatchToolCalls(ctx, runID, reply.ToolCalls, appendAndEmit)
			result.ToolCalls = append(result.ToolCalls, records...)
			if dispatchErr != nil {
				result.StopReason = "error"
				if err := c.runPostHooks(ctx, result); err != nil {
					dispatchErr = errors.Join(dispatchErr, err)
				}
				return result, dispatchErr
			}
			for _, msg := range toolMessages {
				transcript = append(transcript, msg)
				c.persist(msg)
			}
			result.Messages = transcript
			continue
		}

		if strings.Contains(reply.Content, marker) {
			result.Output = reply.Content
			if result.Usage.TotalTokens == 0 {
				result.Usage = estimateUsage(result.Messages)
			}
			if err := appendAndEmit(event.NewEvent(event.EventCompletion, runID, event.CompletionData{
				Output:     result.Output,
				StopReason: result.StopReason,
				Iterations: result.Iterations,
			})); err != nil {
				return result, err
			}
			if err := c.runPostHooks(ctx, result); err != nil {
				return result, err
			}
			return result, nil
		}

		// No tools requested and no completion marker: keep iterating so the
		// model can finish its plan.
		result.Output = reply.Content
	}

	budgetErr := &BudgetExceededError{MaxIterations: maxIterations}
	result.StopReason = "budget_exceeded"
	if result.Usage.TotalTokens == 0 {
		result.Usage = estimateUsage(result.Messages)
	}
	if err := appendAndEmit(errorEvent(runID, "budget", budgetErr, false)); err != nil {
		return result, err
	}
	if err := c.runPostHooks(ctx, result); err != nil {
		return result, errors.Join(error(budgetErr), err)
	}
	return result, budgetErr
}

// generate invokes the model, passing tool schemas when both sides support
// tool calling.
func (c *Controller) generate(ctx context.Context, transcript []modelpkg.Message, toolDefs []map[string]any) (modelpkg.Message, error) {
	messages := transcript
	if strings.TrimSpace(c.cfg.System) != "" {
		messages = append([]modelpkg.Message{{Role: "system", Content: c.cfg.System}}, transcript...)
	}
	if toolModel, ok := c.cfg.Model.(modelpkg.ModelWithTools); ok && len(toolDefs) > 0 {
		return toolModel.GenerateWithTools(ctx, messages, toolDefs)
	}
	return c.cfg.Model.Generate(ctx, messages)
}

// dispatchToolCalls executes the requested tool calls strictly in order.
// Tool failures and unknown tools become error results fed back to the
// model; only context cancellation aborts the run.
func (c *Controller) dispatchToolCalls(ctx context.Context, runID string, calls []modelpkg.ToolCall, appendAndEmit func(event.Event) error) ([]modelpkg.Message, []ToolCall, error) {
	messages := make([]modelpkg.Message, 0, len(calls))
	records := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return messages, records, err
		}

		record := ToolCall{
			ID:     call.ID,
			Name:   call.Name,
			Params: normalizeParams(call.Arguments),
		}
		if err := appendAndEmit(event.NewEvent(event.EventToolCall, runID, event.ToolCallData{
			ID:     call.ID,
			Name:   call.Name,
			Params: maps.Clone(record.Params),
		})); err != nil {
			return messages, records, err
		}

		if err := runHooks(c.hooks, false, func(h Hook) error {
			return h.PreToolCall(ctx, call.Name, record.Params)
		}); err != nil {
			return messages, records, err
		}

		started := time.Now()
		output, execErr := c.executeTool(ctx, call.Name, record.Params)
		record.Duration = time.Since(started)
		if execErr != nil {
			if errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded) {
				return messages, records, fmt.Errorf("%w: %s: %v", ErrToolExecution, call.Name, execErr)
			}
			record.Error = execErr.Error()
			record.Output = toolErrorPayload(execErr)
		} else {
			record.Output = output
		}

		if hookErr := runHooks(c.hooks, true, func(h Hook) error {
			return h.PostToolCall(ctx, call.Name, record)
		}); hookErr != nil && record.Error == "" {
			record.Error = hookErr.Error()
		}

		if err := appendAndEmit(event.NewEvent(event.EventToolResult, runID, event.ToolResultData{
			ID:       record.ID,
			Name:     record.Name,
			Output:   record.Output,
			Error:    record.Error,
			Duration: record.Duration,
		})); err != nil {
			return messages, records, err
		}

		records = append(records, record)
		messages = append(messages, modelpkg.Message{
			Role:      "tool",
			Content:   record.Output,
			ToolCalls: []modelpkg.ToolCall{{ID: call.ID, Name: call.Name}},
		})
	}
	return messages, records, nil
}

func (c *Controller) runPostHooks(ctx context.Context, result *RunResult) error {
	return runHooks(c.hooks, true, func(h Hook) error {
		return h.PostRun(ctx, result)
	})
}

func (c *Controller) executeTool(ctx context.Context, name string, params map[string]any) (string, error) {
	if c.cfg.Tools == nil {
		return "", fmt.Errorf("no tools registered")
	}
	result, err := c.cfg.Tools.Execute(ctx, name, params)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	if result.Error != nil {
		return "", result.Error
	}
	return result.Output, nil
}

func (c *Controller) toolDefinitions() []map[string]any {
	if c.cfg.Tools == nil {
		return nil
	}
	return c.cfg.Tools.Definitions()
}

func (c *Controller) persist(msg modelpkg.Message) {
	if c.cfg.Session == nil {
		return
	}
	_ = c.cfg.Session.Append(toSessionMessage(msg))
}

// persistedCount reports how many messages the session already holds, so a
// resumed transcript is not appended a second time.
func (c *Controller) persistedCount() int {
	if c.cfg.Session == nil {
		return 0
	}
	msgs, err := c.cfg.Session.List(session.Filter{})
	if err != nil {
		return 0
	}
	return len(msgs)
}

func toSessionMessage(msg modelpkg.Message) session.Message {
	out := session.Message{
		Role:    msg.Role,
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: maps.Clone(call.Arguments),
		})
	}
	return out
}

// normalizeParams coerces tool arguments to a fresh map[string]any so tool
// implementations never see provider-owned or nil maps.
func normalizeParams(args map[string]any) map[string]any {
	if len(args) == 0 {
		return map[string]any{}
	}
	return maps.Clone(args)
}

// estimateUsage approximates token counts from transcript rune counts, used
// only when the provider reported no usage at all. Assistant turns count as
// output, everything else as input.
func estimateUsage(messages []modelpkg.Message) modelpkg.TokenUsage {
	var usage modelpkg.TokenUsage
	for _, msg := range messages {
		runes := utf8.RuneCountInString(msg.Content)
		if msg.Role == "assistant" {
			usage.OutputTokens += runes
		} else {
			usage.InputTokens += runes
		}
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}

func toolErrorPayload(err error) string {
	payload, marshalErr := json.Marshal(map[string]any{"error": err.Error()})
	if marshalErr != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(payload)
}

func progressEvent(runID, stage, message string, details map[string]any) event.Event {
	return event.NewEvent(event.EventProgress, runID, event.ProgressData{
		Stage:   stage,
		Message: message,
		Details: maps.Clone(details),
	})
}

func errorEvent(runID, kind string, err error, recoverable bool) event.Event {
	if err == nil {
		err = errors.New("unknown error")
	}
	return event.NewEvent(event.EventError, runID, event.ErrorData{
		Message:     err.Error(),
		Kind:        kind,
		Recoverable: recoverable,
	})
}

func runHooks(hooks []Hook, collect bool, fn func(Hook) error) error {
	var joined error
	for _, hook := range hooks {
		if err := fn(hook); err != nil {
			if !collect {
				return err
			}
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
