// Package mcpclient manages the client side of an MCP connection to a tool
// host launched as a subprocess.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coopco/toolchat/internal/tools"
)

// Runtime is the program used to launch server scripts of one extension.
type Runtime struct {
	Command string
	Args    []string
}

// Options configures how the tool host is launched and how the client
// identifies itself.
type Options struct {
	Runtimes      map[string]Runtime // keyed by extension, e.g. ".py"
	ClientName    string
	ClientVersion string
	Stderr        io.Writer // host stderr; defaults to os.Stderr
}

// InvalidServerError reports a server script whose extension has no runtime.
type InvalidServerError struct {
	Path      string
	Supported []string
}

func (e *InvalidServerError) Error() string {
	return fmt.Sprintf("server script %q must be a %s file", e.Path, strings.Join(e.Supported, ", "))
}

// ResolveCommand picks the runtime for scriptPath and returns the program and
// arguments that start it.
func ResolveCommand(scriptPath string, runtimes map[string]Runtime) (string, []string, error) {
	ext := strings.ToLower(extension(scriptPath))
	rt, ok := runtimes[ext]
	if !ok || rt.Command == "" {
		supported := make([]string, 0, len(runtimes))
		for e := range runtimes {
			supported = append(supported, e)
		}
		sort.Strings(supported)
		return "", nil, &InvalidServerError{Path: scriptPath, Supported: supported}
	}
	args := append(append([]string{}, rt.Args...), scriptPath)
	return rt.Command, args, nil
}

func extension(p string) string {
	i := strings.LastIndexAny(p, "./\\")
	if i < 0 || p[i] != '.' {
		return ""
	}
	return p[i:]
}

// Session is a live connection to one tool host. It caches the tool list
// returned by the handshake.
type Session struct {
	session *mcp.ClientSession
	tools   []tools.ToolDefinition
	names   map[string]bool
	mu      sync.RWMutex

	closeOnce sync.Once
	closeErr  error
}

// Connect validates scriptPath, starts the host subprocess and performs the
// handshake. Nothing is spawned when the extension is not recognised.
func Connect(ctx context.Context, scriptPath string, opts Options) (*Session, error) {
	command, args, err := ResolveCommand(scriptPath, opts.Runtimes)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("server script: %w", err)
	}

	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	slog.Debug("starting tool host", "command", command, "args", args)

	return ConnectTransport(ctx, &mcp.CommandTransport{Command: cmd}, opts)
}

// ConnectTransport performs the handshake over an already constructed transport.
func ConnectTransport(ctx context.Context, transport mcp.Transport, opts Options) (*Session, error) {
	name := opts.ClientName
	if name == "" {
		name = "toolchat"
	}
	version := opts.ClientVersion
	if version == "" {
		version = "v0.1.0"
	}
	client := mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, nil)

	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	s := &Session{session: cs}
	if err := s.RefreshTools(ctx); err != nil {
		cs.Close()
		return nil, err
	}
	slog.Info("MCP client connected", "tools", s.ToolNames())
	return s, nil
}

// RefreshTools re-runs tools/list and replaces the cached definitions.
func (s *Session) RefreshTools(ctx context.Context) error {
	res, err := s.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	defs := make([]tools.ToolDefinition, 0, len(res.Tools))
	names := make(map[string]bool, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil || string(schema) == "null" {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		defs = append(defs, tools.ToolDefinition{
			Type: "function",
			Function: tools.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
		names[t.Name] = true
	}

	s.mu.Lock()
	s.tools = defs
	s.names = names
	s.mu.Unlock()
	return nil
}

// Definitions returns the cached tool list from the last handshake.
func (s *Session) Definitions() []tools.ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tools.ToolDefinition, len(s.tools))
	copy(out, s.tools)
	return out
}

// ToolNames returns the cached tool names in host order.
func (s *Session) ToolNames() []string {
	defs := s.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Function.Name
	}
	return names
}

// CallTool invokes a tool that the handshake advertised. Unknown names fail
// with tools.ErrToolNotFound without a round trip; in-band tool failures come
// back as *tools.ExecutionError.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	s.mu.RLock()
	known := s.names[name]
	s.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("%w: %s", tools.ErrToolNotFound, name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	text := contentText(res.Content)
	if res.IsError {
		return "", &tools.ExecutionError{Tool: name, Err: errors.New(text)}
	}
	return text, nil
}

// contentText flattens tool result content; non-text parts are kept as JSON.
func contentText(content []mcp.Content) string {
	var b strings.Builder
	for i, c := range content {
		if i > 0 {
			b.WriteString("\n")
		}
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
			continue
		}
		data, err := json.Marshal(c)
		if err != nil {
			continue
		}
		b.Write(data)
	}
	return b.String()
}

// Close ends the session and stops the host process. It is safe to call more
// than once and on a nil Session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.session != nil {
			s.closeErr = s.session.Close()
		}
	})
	return s.closeErr
}
