package tool

import "context"

// Tool is one locally executable action the model may request.
type Tool interface {
	// Name returns the identifier the model uses in tool calls.
	Name() string
	// Description explains the tool to the model.
	Description() string
	// Schema describes the accepted parameters; nil disables validation.
	Schema() *JSONSchema
	// Execute runs the tool with already-validated parameters.
	Execute(ctx context.Context, params map[string]any) (*ToolResult, error)
}
