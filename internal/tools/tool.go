package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Tool is the interface all tools must implement
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, params json.RawMessage) (string, error)
}

// ErrToolNotFound is returned when a call names a tool that was never registered.
var ErrToolNotFound = errors.New("tool not found")

// ExecutionError wraps a failure raised by a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
