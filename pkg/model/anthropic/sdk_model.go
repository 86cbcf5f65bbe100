package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/cexll/architect-go/pkg/model"
	"github.com/cexll/architect-go/pkg/telemetry"
)

const (
	defaultMaxTokens = 4096
	defaultModel     = anthropicsdk.ModelClaudeSonnet4_5_20250929
)

// Ensure SDKModel implements the ModelWithTools interface.
var _ modelpkg.ModelWithTools = (*SDKModel)(nil)

// SDKModel wraps the official Anthropic SDK to implement our Model interface.
type SDKModel struct {
	client    *anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int
	system    string
}

// NewSDKModel creates a model backed by the official Anthropic SDK.
func NewSDKModel(apiKey, model string, maxTokens int) *SDKModel {
	return NewSDKModelWithBaseURL(apiKey, model, "", maxTokens)
}

// NewSDKModelWithBaseURL creates a model with custom base URL support.
func NewSDKModelWithBaseURL(apiKey, model, baseURL string, maxTokens int) *SDKModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropicsdk.NewClient(opts...)

	sdkModel := anthropicsdk.Model(model)
	if model == "" {
		sdkModel = defaultModel
	}

	return &SDKModel{
		client:    &client,
		model:     sdkModel,
		maxTokens: maxTokens,
	}
}

// Generate performs a blocking call without tools.
func (m *SDKModel) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.sdk.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(m.model)),
			attribute.Bool("llm.stream", false),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	return m.GenerateWithTools(ctx, messages, nil)
}

// GenerateWithTools performs a blocking call with tool definitions.
func (m *SDKModel) GenerateWithTools(ctx context.Context, messages []modelpkg.Message, tools []map[string]any) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.sdk.generate_with_tools",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(m.model)),
			attribute.Bool("llm.stream", false),
			attribute.Int("llm.tools_count", len(tools)),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	systemBlocks, messageParams := convertMessagesToAnthropic(messages, m.system)
	maxTokens := m.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     m.model,
		MaxTokens: int64(maxTokens),
		Messages:  messageParams,
	}

	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	if len(tools) > 0 {
		toolParams, err := convertToolsToAnthropic(tools)
		if err != nil {
			return modelpkg.Message{}, fmt.Errorf("convert tools: %w", err)
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return modelpkg.Message{}, fmt.Errorf("anthropic sdk call: %w", err)
	}

	return convertMessageFromAnthropic(*message), nil
}

// GenerateStream implements streaming with callback (required by Model interface).
func (m *SDKModel) GenerateStream(ctx context.Context, messages []modelpkg.Message, cb modelpkg.StreamCallback) (err error) {
	if cb == nil {
		return errors.New("anthropic sdk stream callback is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.sdk.generate_stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(m.model)),
			attribute.Bool("llm.stream", true),
		)...),
	)
	defer telemetry.EndSpan(span, err)

	systemBlocks, messageParams := convertMessagesToAnthropic(messages, m.system)
	maxTokens := m.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     m.model,
		MaxTokens: int64(maxTokens),
		Messages:  messageParams,
	}

	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	stream := m.client.Messages.NewStreaming(ctx, params)

	message := anthropicsdk.Message{}

	for stream.Next() {
		event := stream.Current()

		if err := message.Accumulate(event); err != nil {
			return fmt.Errorf("accumulate stream: %w", err)
		}

		switch delta := event.AsAny().(type) {
		case anthropicsdk.ContentBlockDeltaEvent:
			switch text := delta.Delta.AsAny().(type) {
			case anthropicsdk.TextDelta:
				if err := cb(modelpkg.StreamResult{
					Message: modelpkg.Message{Role: "assistant", Content: text.Text},
					Final:   false,
				}); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}

	finalMsg := convertMessageFromAnthropic(message)
	return cb(modelpkg.StreamResult{
		Message: finalMsg,
		Final:   true,
	})
}

// SetSystem sets the system prompt.
func (m *SDKModel) SetSystem(system string) {
	m.system = system
}
