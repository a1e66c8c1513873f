package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openAIChatHandler(content string, toolCalls []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg := map[string]any{
			"role":    "assistant",
			"content": content,
		}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       msg,
				"finish_reason": "stop",
			}},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
				"total_tokens":      15,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestOpenAIChat_BasicResponse(t *testing.T) {
	srv := httptest.NewServer(openAIChatHandler("Hello!", nil))
	defer srv.Close()

	p := NewOpenAICompatProvider("test-key", srv.URL, "gpt-4o")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
}

func TestOpenAIChat_ModelAndTools(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Tools []struct {
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		openAIChatHandler("ok", nil)(w, r)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider("test-key", srv.URL, "my-default-model")
	_, err := p.Chat(context.Background(), ChatRequest{
		Model:        "qwen3",
		SystemPrompt: "be brief",
		Messages:     []Message{{Role: "user", Content: "hi"}},
		Tools: []ToolDef{{Type: "function", Function: FunctionDef{
			Name: "add", Parameters: json.RawMessage(`{"type":"object"}`),
		}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Model != "qwen3" {
		t.Errorf("model = %q, want qwen3", body.Model)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
		t.Errorf("expected system prompt first, got %+v", body.Messages)
	}
	if len(body.Tools) != 1 || body.Tools[0].Function.Name != "add" {
		t.Errorf("unexpected tools %+v", body.Tools)
	}
}

func TestOpenAIChat_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(openAIChatHandler("", []map[string]any{{
		"id":   "call_1",
		"type": "function",
		"function": map[string]any{
			"name":      "add",
			"arguments": `{"a":2,"b":3}`,
		},
	}}))
	defer srv.Close()

	p := NewOpenAICompatProvider("k", srv.URL, "m")
	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "2+3?"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Arguments != `{"a":2,"b":3}` {
		t.Errorf("unexpected tool call %+v", resp.ToolCalls[0])
	}
}

func TestOpenAIChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"model \"nope\" not found","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider("k", srv.URL, "nope")
	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if connErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", connErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected backend message in error, got %q", err.Error())
	}
	if !strings.Contains(connErr.Body, `"type":"invalid_request_error"`) {
		t.Errorf("Body should hold the raw response, got %q", connErr.Body)
	}
	if connErr.Detail() != `model "nope" not found` {
		t.Errorf("Detail = %q", connErr.Detail())
	}
}

func TestOpenAIChat_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatProvider("k", srv.URL, "m").Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if connErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", connErr.StatusCode)
	}
	if connErr.Body != "upstream exploded" {
		t.Errorf("Body = %q", connErr.Body)
	}
}

func TestOpenAIChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider("k", srv.URL, "m")
	if _, err := p.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
