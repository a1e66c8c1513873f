package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewBuiltinRegistry returns a registry holding the inbox, add and sales-report tools.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewFetchInboxTool())
	r.Register(NewAddTool())
	r.Register(NewSalesReportTool())
	return r
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

// Execute runs the named tool. Unknown names yield ErrToolNotFound; handler
// errors and panics are returned as *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (result string, err error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s (available: %s)", ErrToolNotFound, name, strings.Join(r.Names(), ", "))
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool panicked", "tool", name, "panic", rec)
			result = ""
			err = &ExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	out, execErr := t.Execute(ctx, args)
	if execErr != nil {
		return "", &ExecutionError{Tool: name, Err: execErr}
	}
	return out, nil
}

func (r *Registry) Definitions() []ToolDefinition {
	all := r.Tools()
	defs := make([]ToolDefinition, 0, len(all))
	for _, t := range all {
		defs = append(defs, ToolDefinition{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
