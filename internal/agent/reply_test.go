package agent

import (
	"testing"

	"github.com/coopco/toolchat/internal/providers"
)

func TestClassifyPlainText(t *testing.T) {
	r := Classify(&providers.ChatResponse{Content: "hello there"}, "")
	text, ok := r.(TextReply)
	if !ok {
		t.Fatalf("expected TextReply, got %T", r)
	}
	if text.Text != "hello there" {
		t.Errorf("Text = %q", text.Text)
	}
}

func TestClassifyDirective(t *testing.T) {
	content := "Let me add those.\n[CALL-TOOL] {\"name\": \"add\", \"arguments\": {\"a\": 2, \"b\": 3}}"
	r := Classify(&providers.ChatResponse{Content: content}, DefaultToolMarker)
	req, ok := r.(ToolCallRequest)
	if !ok {
		t.Fatalf("expected ToolCallRequest, got %T", r)
	}
	if req.Native {
		t.Error("directive calls should not be native")
	}
	if req.Preamble != "Let me add those." {
		t.Errorf("Preamble = %q", req.Preamble)
	}
	if len(req.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(req.Calls))
	}
	c := req.Calls[0]
	if c.Name != "add" || c.Arguments != `{"a": 2, "b": 3}` || c.ID != "directive_0" {
		t.Errorf("unexpected call: %+v", c)
	}
}

func TestClassifyMultipleDirectivesAndFence(t *testing.T) {
	content := "[CALL-TOOL]\n```json\n{\"name\":\"add\",\"arguments\":{\"a\":1,\"b\":1}}\n```\n" +
		"[CALL-TOOL]: {\"name\":\"sales-report\",\"arguments\":{\"month\":6}}"
	req, ok := Classify(&providers.ChatResponse{Content: content}, "").(ToolCallRequest)
	if !ok {
		t.Fatal("expected ToolCallRequest")
	}
	if len(req.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(req.Calls))
	}
	if req.Calls[0].Name != "add" || req.Calls[1].Name != "sales-report" {
		t.Errorf("names = %q, %q", req.Calls[0].Name, req.Calls[1].Name)
	}
	if req.Calls[1].ID != "directive_1" {
		t.Errorf("second ID = %q", req.Calls[1].ID)
	}
	if req.Preamble != "" {
		t.Errorf("Preamble = %q", req.Preamble)
	}
}

func TestClassifyMalformedDirectiveIsText(t *testing.T) {
	for _, content := range []string{
		"[CALL-TOOL] add 2 and 3",
		"[CALL-TOOL] {\"name\": \"add\", \"arguments\": ",
		"[CALL-TOOL] {\"arguments\": {}}",
		"[CALL-TOOL] sure {\"name\": \"add\"}",
	} {
		r := Classify(&providers.ChatResponse{Content: content}, "")
		text, ok := r.(TextReply)
		if !ok {
			t.Errorf("%q: expected TextReply, got %T", content, r)
			continue
		}
		if text.Text != content {
			t.Errorf("%q: text changed to %q", content, text.Text)
		}
	}
}

func TestClassifyArgumentsDefaults(t *testing.T) {
	req := Classify(&providers.ChatResponse{Content: `[CALL-TOOL] {"name": "fetch-inbox"}`}, "").(ToolCallRequest)
	if req.Calls[0].Arguments != "{}" {
		t.Errorf("missing arguments should become {}, got %q", req.Calls[0].Arguments)
	}

	req = Classify(&providers.ChatResponse{Content: `[CALL-TOOL] {"name": "add", "arguments": "{\"a\":1,\"b\":2}"}`}, "").(ToolCallRequest)
	if req.Calls[0].Arguments != `{"a":1,"b":2}` {
		t.Errorf("string-encoded arguments not unwrapped: %q", req.Calls[0].Arguments)
	}
}

func TestClassifyCustomMarker(t *testing.T) {
	content := `TOOL>> {"name": "add", "arguments": {"a": 1, "b": 2}}`
	if _, ok := Classify(&providers.ChatResponse{Content: content}, DefaultToolMarker).(TextReply); !ok {
		t.Error("default marker should not match a custom directive")
	}
	if _, ok := Classify(&providers.ChatResponse{Content: content}, "TOOL>>").(ToolCallRequest); !ok {
		t.Error("custom marker should produce a ToolCallRequest")
	}
}

func TestClassifyNativeWins(t *testing.T) {
	resp := &providers.ChatResponse{
		Content: `thinking [CALL-TOOL] {"name": "sales-report", "arguments": {"month": 1}}`,
		ToolCalls: []providers.ToolCall{
			{Name: "add", Arguments: `{"a":2,"b":3}`},
			{ID: "x1", Name: "fetch-inbox", Arguments: ""},
		},
	}
	req, ok := Classify(resp, "").(ToolCallRequest)
	if !ok {
		t.Fatal("expected ToolCallRequest")
	}
	if !req.Native {
		t.Error("expected Native")
	}
	if len(req.Calls) != 2 || req.Calls[0].Name != "add" {
		t.Fatalf("unexpected calls: %+v", req.Calls)
	}
	if req.Calls[0].ID != "call_0" || req.Calls[1].ID != "x1" {
		t.Errorf("IDs = %q, %q", req.Calls[0].ID, req.Calls[1].ID)
	}
	if req.Calls[1].Arguments != "{}" {
		t.Errorf("empty arguments = %q", req.Calls[1].Arguments)
	}
	if resp.ToolCalls[0].ID != "" {
		t.Error("Classify must not mutate the response")
	}
}
