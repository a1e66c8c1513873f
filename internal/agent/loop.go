// Package agent drives one chat turn: inference, tool dispatch to the tool
// host and follow-up inference until the model produces a text answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coopco/toolchat/internal/providers"
	"github.com/coopco/toolchat/internal/session"
	"github.com/coopco/toolchat/internal/tools"
)

// ToolCaller is the tool host as seen by the agent. *mcpclient.Session
// satisfies it.
type ToolCaller interface {
	Definitions() []tools.ToolDefinition
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// SessionConfig carries per-turn inference settings. The chat loop owns it
// and passes it to every query.
type SessionConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ToolEvent describes one tool invocation made during a turn.
type ToolEvent struct {
	Name      string
	Arguments string
	Result    string
	Err       error
}

// Config holds all dependencies and settings for an Agent.
type Config struct {
	Provider     providers.Provider
	Tools        ToolCaller // may be nil
	Transcript   *session.Transcript
	KeepHistory  bool // prepend earlier turns to each query
	MaxToolTurns int
	ToolMarker   string
	OnToolCall   func(ToolEvent)

	// DirectiveOnly withholds the tool list from the backend's tool-calling
	// API. Tools are then offered only through the directive system prompt,
	// for models that reject native tools.
	DirectiveOnly bool
}

// Agent answers user queries with the help of a tool host.
type Agent struct {
	provider    providers.Provider
	tools       ToolCaller
	transcript  *session.Transcript
	keepHistory bool
	native      bool
	maxTurns    int
	marker      string
	onToolCall  func(ToolEvent)
}

// New creates an Agent from the given config.
func New(cfg Config) *Agent {
	maxTurns := cfg.MaxToolTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	marker := cfg.ToolMarker
	if marker == "" {
		marker = DefaultToolMarker
	}
	return &Agent{
		provider:    cfg.Provider,
		tools:       cfg.Tools,
		transcript:  cfg.Transcript,
		keepHistory: cfg.KeepHistory,
		native:      !cfg.DirectiveOnly,
		maxTurns:    maxTurns,
		marker:      marker,
		onToolCall:  cfg.OnToolCall,
	}
}

// ErrNoAnswer is returned when the turn limit is hit before the model wrote any text.
var ErrNoAnswer = errors.New("no answer produced")

// ProcessQuery runs one user turn and returns the model's final text.
func (a *Agent) ProcessQuery(ctx context.Context, sc SessionConfig, query string) (string, error) {
	var messages []providers.Message
	if a.keepHistory && a.transcript != nil {
		messages = transcriptToMessages(a.transcript.Messages())
	}
	messages = append(messages, providers.Message{Role: "user", Content: query})

	var defs []tools.ToolDefinition
	if a.tools != nil {
		defs = a.tools.Definitions()
	}

	answer, err := a.runToolLoop(ctx, sc, messages, defs)
	if err != nil {
		return "", err
	}

	if a.transcript != nil {
		a.transcript.Append(session.Message{Role: "user", Content: query})
		a.transcript.Append(session.Message{Role: "assistant", Content: answer, Model: sc.Model})
	}
	return answer, nil
}

// runToolLoop alternates inference and tool execution until a TextReply or
// the turn limit.
func (a *Agent) runToolLoop(ctx context.Context, sc SessionConfig, messages []providers.Message, defs []tools.ToolDefinition) (string, error) {
	req := providers.ChatRequest{
		Model:        sc.Model,
		MaxTokens:    sc.MaxTokens,
		Temperature:  sc.Temperature,
		SystemPrompt: BuildSystemPrompt(defs, a.marker),
	}
	if a.native {
		req.Tools = toolDefsToProviderTools(defs)
	}

	lastText := ""
	for turn := 0; turn < a.maxTurns; turn++ {
		req.Messages = messages
		resp, err := a.provider.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("inference failed: %w", err)
		}

		switch r := Classify(resp, a.marker).(type) {
		case TextReply:
			return r.Text, nil
		case ToolCallRequest:
			if r.Preamble != "" {
				lastText = r.Preamble
			}
			messages = a.executeCalls(ctx, messages, resp.Content, r)
		}
	}

	slog.Warn("tool turn limit reached", "limit", a.maxTurns)
	if lastText != "" {
		return lastText, nil
	}
	return "", fmt.Errorf("%w after %d tool turns", ErrNoAnswer, a.maxTurns)
}

// executeCalls runs each requested call and appends the exchange to messages.
// Tool failures are reported back to the model rather than ending the turn.
func (a *Agent) executeCalls(ctx context.Context, messages []providers.Message, content string, r ToolCallRequest) []providers.Message {
	if r.Native {
		messages = append(messages, providers.Message{Role: "assistant", Content: content, ToolCalls: r.Calls})
	} else {
		messages = append(messages, providers.Message{Role: "assistant", Content: content})
	}

	for _, tc := range r.Calls {
		slog.Debug("executing tool", "name", tc.Name, "id", tc.ID)
		result, err := a.callTool(ctx, tc)
		if a.onToolCall != nil {
			a.onToolCall(ToolEvent{Name: tc.Name, Arguments: tc.Arguments, Result: result, Err: err})
		}
		if err != nil {
			result = fmt.Sprintf("Error: %v", err)
		}

		if r.Native {
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		} else {
			messages = append(messages, providers.Message{
				Role:    "user",
				Content: fmt.Sprintf("Result of tool %s:\n%s", tc.Name, result),
			})
		}
	}
	return messages
}

func (a *Agent) callTool(ctx context.Context, tc providers.ToolCall) (string, error) {
	if a.tools == nil {
		return "", fmt.Errorf("%w: %s (no tool host connected)", tools.ErrToolNotFound, tc.Name)
	}
	return a.tools.CallTool(ctx, tc.Name, json.RawMessage(tc.Arguments))
}

// transcriptToMessages converts stored turns to provider message format.
func transcriptToMessages(history []session.Message) []providers.Message {
	msgs := make([]providers.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, providers.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// toolDefsToProviderTools converts tool definitions to provider tool format.
func toolDefsToProviderTools(defs []tools.ToolDefinition) []providers.ToolDef {
	if len(defs) == 0 {
		return nil
	}
	result := make([]providers.ToolDef, len(defs))
	for i, d := range defs {
		result[i] = providers.ToolDef{
			Type: d.Type,
			Function: providers.FunctionDef{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		}
	}
	return result
}
