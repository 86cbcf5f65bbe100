package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	schema *JSONSchema
	run    func(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub " + s.name }
func (s *stubTool) Schema() *JSONSchema { return s.schema }
func (s *stubTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	if s.run != nil {
		return s.run(ctx, params)
	}
	return &ToolResult{Success: true, Output: s.name}, nil
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&stubTool{name: "alpha"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatal("expected nil tool error")
	}
	if err := registry.Register(&stubTool{name: ""}); err == nil {
		t.Fatal("expected empty name error")
	}
}

func TestRegistryListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(&stubTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	var names []string
	for _, tl := range registry.List() {
		names = append(names, tl.Name())
	}
	want := "alpha,mid,zeta"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("List order = %s, want %s", got, want)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	registry := NewRegistry()
	schema := &JSONSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"path": map[string]interface{}{"type": "string"},
		},
		Required: []string{"path"},
	}
	if err := registry.Register(&stubTool{name: "write_file", schema: schema}); err != nil {
		t.Fatal(err)
	}
	defs := registry.Definitions()
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0]["type"] != "function" {
		t.Fatalf("definition type = %v, want function", defs[0]["type"])
	}
	fn, ok := defs[0]["function"].(map[string]any)
	if !ok {
		t.Fatalf("function block missing: %v", defs[0])
	}
	if fn["name"] != "write_file" {
		t.Fatalf("function name = %v", fn["name"])
	}
	params, ok := fn["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters missing: %v", fn)
	}
	if params["type"] != "object" {
		t.Fatalf("parameters type = %v", params["type"])
	}
}

func TestRegistryExecute(t *testing.T) {
	schema := &JSONSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"path": map[string]interface{}{"type": "string"},
		},
		Required: []string{"path"},
	}
	registry := NewRegistry()
	err := registry.Register(&stubTool{
		name:   "echo",
		schema: schema,
		run: func(_ context.Context, params map[string]interface{}) (*ToolResult, error) {
			return &ToolResult{Success: true, Output: fmt.Sprint(params["path"])}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid params", func(t *testing.T) {
		res, err := registry.Execute(context.Background(), "echo", map[string]interface{}{"path": "a.txt"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if res.Output != "a.txt" {
			t.Fatalf("output = %q", res.Output)
		}
	})
	t.Run("missing required", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), "echo", map[string]interface{}{})
		if err == nil || !strings.Contains(err.Error(), "missing required field") {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), "echo", map[string]interface{}{"path": 42})
		if err == nil || !strings.Contains(err.Error(), "expected string") {
			t.Fatalf("expected type error, got %v", err)
		}
	})
	t.Run("unknown tool", func(t *testing.T) {
		_, err := registry.Execute(context.Background(), "nope", nil)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestDefaultValidatorTypes(t *testing.T) {
	schema := &JSONSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"text":    map[string]interface{}{"type": "string"},
			"count":   map[string]interface{}{"type": "integer"},
			"ratio":   map[string]interface{}{"type": "number"},
			"enabled": map[string]interface{}{"type": "boolean"},
		},
	}
	cases := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{name: "all valid", params: map[string]interface{}{"text": "x", "count": 3, "ratio": 1.5, "enabled": true}},
		{name: "float as integer", params: map[string]interface{}{"count": float64(4)}},
		{name: "fractional as integer", params: map[string]interface{}{"count": 4.5}, wantErr: true},
		{name: "bool as string", params: map[string]interface{}{"text": true}, wantErr: true},
		{name: "unknown field passes", params: map[string]interface{}{"extra": struct{}{}}},
	}
	validator := DefaultValidator{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.params, schema)
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
