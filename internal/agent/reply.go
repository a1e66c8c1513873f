package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/coopco/toolchat/internal/providers"
)

// DefaultToolMarker introduces a tool-call directive in model text.
const DefaultToolMarker = "[CALL-TOOL]"

// Reply is the classified outcome of one inference step: either a TextReply
// or a ToolCallRequest.
type Reply interface {
	isReply()
}

// TextReply is a final answer for the user.
type TextReply struct {
	Text string
}

// ToolCallRequest asks for one or more tool invocations before the model can answer.
type ToolCallRequest struct {
	Preamble string               // text the model wrote before the calls
	Calls    []providers.ToolCall // Arguments are JSON objects
	Native   bool                 // calls came from the backend's tool-calling API
}

func (TextReply) isReply()       {}
func (ToolCallRequest) isReply() {}

// Classify turns a backend response into a Reply. Native tool calls win;
// otherwise the content is scanned for marker directives of the form
//
//	[CALL-TOOL] {"name": "add", "arguments": {"a": 2, "b": 3}}
//
// A marker with no parseable directive leaves the reply as plain text.
func Classify(resp *providers.ChatResponse, marker string) Reply {
	if len(resp.ToolCalls) > 0 {
		calls := make([]providers.ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			calls[i] = tc
			calls[i].Arguments = normalizeArgs(gjson.Parse(tc.Arguments), tc.Arguments)
			if calls[i].ID == "" {
				calls[i].ID = fmt.Sprintf("call_%d", i)
			}
		}
		return ToolCallRequest{Preamble: strings.TrimSpace(resp.Content), Calls: calls, Native: true}
	}

	if marker == "" {
		marker = DefaultToolMarker
	}
	preamble, calls := parseDirectives(resp.Content, marker)
	if len(calls) == 0 {
		return TextReply{Text: resp.Content}
	}
	return ToolCallRequest{Preamble: preamble, Calls: calls}
}

func parseDirectives(text, marker string) (string, []providers.ToolCall) {
	first := strings.Index(text, marker)
	if first < 0 {
		return "", nil
	}
	preamble := strings.TrimSpace(text[:first])

	var calls []providers.ToolCall
	rest := text[first:]
	for {
		i := strings.Index(rest, marker)
		if i < 0 {
			break
		}
		rest = rest[i+len(marker):]

		j := strings.IndexByte(rest, '{')
		if j < 0 {
			break
		}
		if !onlyFence(rest[:j]) {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(rest[j:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		rest = rest[j+int(dec.InputOffset()):]

		directive := gjson.ParseBytes(raw)
		name := strings.TrimSpace(directive.Get("name").String())
		if name == "" {
			continue
		}
		args := directive.Get("arguments")
		calls = append(calls, providers.ToolCall{
			ID:        fmt.Sprintf("directive_%d", len(calls)),
			Name:      name,
			Arguments: normalizeArgs(args, args.Raw),
		})
	}
	return preamble, calls
}

// onlyFence reports whether s holds nothing but whitespace, a colon or a
// markdown code fence between a marker and its JSON object.
func onlyFence(s string) bool {
	s = strings.Trim(s, " \t\r\n:`")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s) == ""
}

// normalizeArgs returns a JSON object for the arguments. Some models send the
// object JSON-encoded inside a string.
func normalizeArgs(v gjson.Result, raw string) string {
	switch {
	case v.IsObject():
		return raw
	case v.Type == gjson.String && gjson.Valid(v.Str) && gjson.Parse(v.Str).IsObject():
		return v.Str
	default:
		return "{}"
	}
}
