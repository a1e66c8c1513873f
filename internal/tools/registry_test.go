package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// stub tool for registry tests
type stubTool struct {
	name   string
	result string
	err    error
	panics bool
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub " + s.name }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "mytool", result: "ok"})
	got, ok := r.Get("mytool")
	if !ok {
		t.Fatal("expected to find registered tool")
	}
	if got.Name() != "mytool" {
		t.Fatalf("expected mytool, got %s", got.Name())
	}
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "greet", result: "hello world"})

	result, err := r.Execute(context.Background(), "greet", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello world" {
		t.Errorf("result = %q, want %q", result, "hello world")
	}
}

func TestExecuteUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "known"})

	_, err := r.Execute(context.Background(), "nope", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "known") {
		t.Errorf("expected available tools in message, got %q", err.Error())
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "fail", err: context.DeadlineExceeded})

	_, err := r.Execute(context.Background(), "fail", json.RawMessage(`{}`))
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %T: %v", err, err)
	}
	if execErr.Tool != "fail" {
		t.Errorf("Tool = %q, want fail", execErr.Tool)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the handler error to be unwrappable")
	}
}

func TestExecuteHandlerPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "explode", panics: true})

	_, err := r.Execute(context.Background(), "explode", nil)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError after panic, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected panic value in error, got %q", err.Error())
	}
}

func TestDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "b"})
	r.Register(&stubTool{name: "a"})
	r.Register(&stubTool{name: "c"})

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if defs[i].Function.Name != want {
			t.Errorf("defs[%d] = %s, want %s", i, defs[i].Function.Name, want)
		}
		if defs[i].Type != "function" {
			t.Errorf("expected type function, got %s", defs[i].Type)
		}
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "dup", result: "first"})
	r.Register(&stubTool{name: "dup", result: "second"})

	if len(r.Names()) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(r.Names()))
	}
	got, _ := r.Execute(context.Background(), "dup", nil)
	if got != "second" {
		t.Errorf("expected second, got %q", got)
	}
}

func TestBuiltinRegistryNames(t *testing.T) {
	r := NewBuiltinRegistry()
	names := r.Names()
	want := []string{"add", "fetch-inbox", "sales-report"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
