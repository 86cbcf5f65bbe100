package toolbuiltin

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestShellTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assertions assume a POSIX shell")
	}
	ws := newWorkspace(t)
	st := NewShellTool(ws)

	t.Run("captures stdout and exit code", func(t *testing.T) {
		res, err := st.Execute(context.Background(), map[string]interface{}{"command": "echo hello"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !res.Success {
			t.Fatalf("expected success: %+v", res)
		}
		if !strings.Contains(res.Output, "exit code: 0") {
			t.Fatalf("output = %q", res.Output)
		}
		if !strings.Contains(res.Output, "hello") {
			t.Fatalf("output = %q", res.Output)
		}
	})

	t.Run("nonzero exit reported not raised", func(t *testing.T) {
		res, err := st.Execute(context.Background(), map[string]interface{}{"command": "echo oops >&2; exit 3"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if res.Success {
			t.Fatal("expected failure result")
		}
		if !strings.Contains(res.Output, "exit code: 3") {
			t.Fatalf("output = %q", res.Output)
		}
		if !strings.Contains(res.Output, "oops") {
			t.Fatalf("stderr missing: %q", res.Output)
		}
	})

	t.Run("runs in workspace root", func(t *testing.T) {
		res, err := st.Execute(context.Background(), map[string]interface{}{"command": "pwd"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(res.Output, ws.Root()) {
			t.Fatalf("output %q does not mention root %q", res.Output, ws.Root())
		}
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := st.Execute(context.Background(), map[string]interface{}{"command": "  "})
		if err == nil {
			t.Fatal("expected empty command error")
		}
	})
}

func TestShellToolTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("assertions assume a POSIX shell")
	}
	ws := newWorkspace(t)
	st := NewShellToolWithTimeout(ws, 100*time.Millisecond)

	start := time.Now()
	res, err := st.Execute(context.Background(), map[string]interface{}{"command": "echo partial; sleep 5"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
	if res.Success {
		t.Fatal("expected timed-out result to fail")
	}
	if !strings.Contains(res.Output, "timeout") {
		t.Fatalf("output = %q", res.Output)
	}
	if !strings.Contains(res.Output, "partial") {
		t.Fatalf("partial output missing: %q", res.Output)
	}
}

func TestDevLoopTools(t *testing.T) {
	ws := newWorkspace(t)

	t.Run("tests tool defaults", func(t *testing.T) {
		tt := NewTestsTool(ws)
		if tt.Name() != "run_tests" {
			t.Fatalf("name = %q", tt.Name())
		}
	})

	t.Run("tests tool custom command", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("assertions assume a POSIX shell")
		}
		tt := NewTestsToolWithCommand(ws, "echo all tests pass", time.Minute)
		res, err := tt.Execute(context.Background(), map[string]interface{}{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !res.Success || !strings.Contains(res.Output, "all tests pass") {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("emulator tool rejects unknown platform", func(t *testing.T) {
		et := NewEmulatorTool(ws)
		if et.Name() != "run_emulator" {
			t.Fatalf("name = %q", et.Name())
		}
		_, err := et.Execute(context.Background(), map[string]interface{}{"platform": "windows-phone"})
		if err == nil {
			t.Fatal("expected unsupported platform error")
		}
	})
}
