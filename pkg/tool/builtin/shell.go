package toolbuiltin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/cexll/architect-go/pkg/security"
	"github.com/cexll/architect-go/pkg/tool"
)

const defaultShellTimeout = 60 * time.Second

var shellSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"command": map[string]interface{}{
			"type":        "string",
			"description": "Shell command to execute inside the project root.",
		},
	},
	Required: []string{"command"},
}

// ShellTool executes one shell command inside the workspace root with an
// enforced wall-clock timeout. A timed-out process is killed and whatever
// output was captured up to that point is returned, not raised.
type ShellTool struct {
	ws      *security.Workspace
	timeout time.Duration
}

// NewShellTool constructs a shell tool with the default timeout.
func NewShellTool(ws *security.Workspace) *ShellTool {
	return NewShellToolWithTimeout(ws, defaultShellTimeout)
}

// NewShellToolWithTimeout constructs a shell tool with a custom timeout.
func NewShellToolWithTimeout(ws *security.Workspace, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	return &ShellTool{ws: ws, timeout: timeout}
}

func (t *ShellTool) Name() string { return "run_shell" }

func (t *ShellTool) Description() string {
	return "Run a shell command in the project root and return captured stdout, stderr, and exit code."
}

func (t *ShellTool) Schema() *tool.JSONSchema { return shellSchema }

func (t *ShellTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	command, err := stringParam(params, "command")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("command cannot be empty")
	}
	return runShellCommand(ctx, t.ws.Root(), command, t.timeout)
}

// runShellCommand is the single execution path shared by every shell-backed
// tool. Non-zero exit codes are part of the captured output so the model can
// see and react to them.
func runShellCommand(ctx context.Context, dir, command string, timeout time.Duration) (*tool.ToolResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cctx, "powershell.exe", "-Command", command)
	} else {
		cmd = exec.CommandContext(cctx, "/bin/sh", "-c", command)
	}
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	runErr := cmd.Run()
	timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded)
	if runErr != nil && !timedOut {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("start command: %w", runErr)
		}
	}

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d\n", exitCode)
	if timedOut {
		fmt.Fprintf(&b, "process killed after %s timeout; partial output follows\n", timeout)
	}
	fmt.Fprintf(&b, "--- stdout ---\n%s\n", stdout.String())
	fmt.Fprintf(&b, "--- stderr ---\n%s", stderr.String())

	return &tool.ToolResult{
		Success: exitCode == 0 && !timedOut,
		Output:  b.String(),
		Data: map[string]interface{}{
			"exit_code": exitCode,
			"timed_out": timedOut,
			"stdout":    stdout.String(),
			"stderr":    stderr.String(),
		},
	}, nil
}
