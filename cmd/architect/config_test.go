package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func testStreams() (ioStreams, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	return ioStreams{out: out, err: errBuf}, out, errBuf
}

func TestConfigCommandRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	streams, out, _ := testStreams()

	if err := configCommand([]string{"--config", path, "init"}, streams); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), "created") {
		t.Fatalf("init output = %q", out.String())
	}
	if err := configCommand([]string{"--config", path, "init"}, streams); err == nil {
		t.Fatal("expected error for second init")
	}

	steps := [][]string{
		{"set", "provider", "Anthropic"},
		{"set", "model", "claude-sonnet-4-5"},
		{"set", "max_iterations", "15"},
	}
	for _, step := range steps {
		if err := configCommand(append([]string{"--config", path}, step...), streams); err != nil {
			t.Fatalf("%v: %v", step, err)
		}
	}

	out.Reset()
	if err := configCommand([]string{"--config", path, "get", "provider"}, streams); err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out.String()) != "anthropic" {
		t.Fatalf("provider = %q, want normalized anthropic", out.String())
	}

	out.Reset()
	if err := configCommand([]string{"--config", path, "list"}, streams); err != nil {
		t.Fatalf("list: %v", err)
	}
	listing := out.String()
	for _, want := range []string{"provider=anthropic", "model=claude-sonnet-4-5", "max_iterations=15"} {
		if !strings.Contains(listing, want) {
			t.Fatalf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestConfigCommandRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	streams, _, _ := testStreams()

	if err := configCommand([]string{"--config", path, "set", "color", "blue"}, streams); err == nil {
		t.Fatal("expected unknown key error")
	}
	if err := configCommand([]string{"--config", path, "set", "max_iterations", "several"}, streams); err == nil {
		t.Fatal("expected integer parse error")
	}
	if err := configCommand([]string{"--config", path, "set", "max_iterations", "-1"}, streams); err == nil {
		t.Fatal("expected negative value error")
	}
	if err := configCommand([]string{"--config", path}, streams); err == nil {
		t.Fatal("expected missing subcommand error")
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	streams, _, errBuf := testStreams()
	err := runCLI(context.Background(), []string{"deploy"}, streams)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(errBuf.String(), "Usage:") {
		t.Fatalf("usage not printed: %q", errBuf.String())
	}
}
