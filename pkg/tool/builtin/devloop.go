package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cexll/architect-go/pkg/security"
	"github.com/cexll/architect-go/pkg/tool"
)

const (
	defaultTestCommand = "npm test"
	defaultTestTimeout = 180 * time.Second

	defaultEmulatorTimeout = 90 * time.Second
)

// TestsTool runs the project test suite and returns the full console output.
type TestsTool struct {
	ws      *security.Workspace
	command string
	timeout time.Duration
}

// NewTestsTool constructs a tests tool using the default npm test command.
func NewTestsTool(ws *security.Workspace) *TestsTool {
	return NewTestsToolWithCommand(ws, defaultTestCommand, defaultTestTimeout)
}

// NewTestsToolWithCommand overrides the test command and timeout.
func NewTestsToolWithCommand(ws *security.Workspace, command string, timeout time.Duration) *TestsTool {
	if strings.TrimSpace(command) == "" {
		command = defaultTestCommand
	}
	if timeout <= 0 {
		timeout = defaultTestTimeout
	}
	return &TestsTool{ws: ws, command: command, timeout: timeout}
}

func (t *TestsTool) Name() string { return "run_tests" }

func (t *TestsTool) Description() string {
	return "Run the project test suite and return the combined console output."
}

func (t *TestsTool) Schema() *tool.JSONSchema {
	return &tool.JSONSchema{Type: "object", Properties: map[string]interface{}{}}
}

func (t *TestsTool) Execute(ctx context.Context, _ map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	return runShellCommand(ctx, t.ws.Root(), t.command, t.timeout)
}

var emulatorSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"platform": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"android", "ios"},
			"description": "Target platform. Defaults to android.",
		},
	},
}

// EmulatorTool builds and launches the app on an emulator and captures the
// build/startup logs for a bounded window. The launcher process usually
// outlives the window (Metro bundler); it is killed on expiry and the output
// captured so far is returned.
type EmulatorTool struct {
	ws      *security.Workspace
	timeout time.Duration
}

// NewEmulatorTool constructs an emulator tool with the default capture window.
func NewEmulatorTool(ws *security.Workspace) *EmulatorTool {
	return NewEmulatorToolWithTimeout(ws, defaultEmulatorTimeout)
}

// NewEmulatorToolWithTimeout overrides the capture window.
func NewEmulatorToolWithTimeout(ws *security.Workspace, timeout time.Duration) *EmulatorTool {
	if timeout <= 0 {
		timeout = defaultEmulatorTimeout
	}
	return &EmulatorTool{ws: ws, timeout: timeout}
}

func (t *EmulatorTool) Name() string { return "run_emulator" }

func (t *EmulatorTool) Description() string {
	return "Build and launch the app on an android or ios emulator, returning captured build output."
}

func (t *EmulatorTool) Schema() *tool.JSONSchema { return emulatorSchema }

func (t *EmulatorTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	platform := "android"
	if params != nil {
		if raw, ok := params["platform"]; ok {
			value, err := coerceString(raw)
			if err != nil {
				return nil, fmt.Errorf("platform must be string: %w", err)
			}
			if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
				platform = trimmed
			}
		}
	}
	var command string
	switch platform {
	case "android":
		command = "npx react-native run-android"
	case "ios":
		command = "npx react-native run-ios"
	default:
		return nil, fmt.Errorf("unsupported platform %q, use android or ios", platform)
	}
	return runShellCommand(ctx, t.ws.Root(), command, t.timeout)
}
