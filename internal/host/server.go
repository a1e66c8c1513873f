// Package host exposes a tools.Registry as an MCP server.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coopco/toolchat/internal/tools"
)

// Config names the server in the MCP handshake.
type Config struct {
	Name    string
	Version string
}

// NewServer builds an MCP server exposing every tool in the registry.
func NewServer(cfg Config, registry *tools.Registry) *mcp.Server {
	if cfg.Name == "" {
		cfg.Name = "toolhost"
	}
	if cfg.Version == "" {
		cfg.Version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)

	for _, t := range registry.Tools() {
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		}, toolHandler(registry, t.Name()))
		slog.Debug("registered tool", "name", t.Name())
	}
	return server
}

// toolHandler adapts Registry.Execute to the SDK. Tool failures are reported
// in-band with IsError so the caller can hand them back to the model.
func toolHandler(registry *tools.Registry, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args []byte
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := registry.Execute(ctx, name, args)
		if err != nil {
			if errors.Is(err, tools.ErrToolNotFound) {
				return nil, err
			}
			slog.Warn("tool call failed", "tool", name, "err", err)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		slog.Info("tool call", "tool", name)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, nil
	}
}

// ServeStdio runs the server on the process's stdin/stdout until the client
// disconnects or ctx is cancelled.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}
