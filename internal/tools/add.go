package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

type AddArgs struct {
	A *int `json:"a" jsonschema:"description=First addend"`
	B *int `json:"b" jsonschema:"description=Second addend"`
}

type AddTool struct{}

func NewAddTool() *AddTool { return &AddTool{} }

var addSchema = GenerateSchema[AddArgs]()

func (t *AddTool) Name() string                { return "add" }
func (t *AddTool) Description() string         { return "Add two numbers" }
func (t *AddTool) Parameters() json.RawMessage { return addSchema }

func (t *AddTool) Execute(_ context.Context, params json.RawMessage) (string, error) {
	var args AddArgs
	if err := decodeArgs(params, &args); err != nil {
		return "", err
	}
	if args.A == nil || args.B == nil {
		return "", errors.New("both a and b are required")
	}
	return strconv.Itoa(*args.A + *args.B), nil
}
