package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatProvider works with OpenAI and any OpenAI-compatible API,
// including Ollama's /v1 endpoint, LM Studio and vLLM.
type OpenAICompatProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompatProvider creates a provider with an explicit base URL.
func NewOpenAICompatProvider(apiKey, baseURL, defaultModel string) *OpenAICompatProvider {
	return NewOpenAICompatProviderWithTimeout(apiKey, baseURL, defaultModel, 0)
}

// NewOpenAICompatProviderWithTimeout is NewOpenAICompatProvider with an HTTP timeout.
func NewOpenAICompatProviderWithTimeout(apiKey, baseURL, defaultModel string, timeout time.Duration) *OpenAICompatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if defaultModel == "" {
		defaultModel = openai.GPT4oMini
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout, Transport: errorBodyRecorder{next: http.DefaultTransport}}
	return &OpenAICompatProvider{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

// Chat sends a chat completion request and returns the response.
func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var msgs []openai.ChatCompletionMessage

	// Prepend system prompt if provided
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		// Some providers reject empty string content
		if msg.Content == "" {
			msg.Content = " "
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, msg)
	}

	oaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		oaiReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != 0 {
		oaiReq.Temperature = float32(req.Temperature)
	}

	for _, t := range req.Tools {
		oaiReq.Tools = append(oaiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	var rawErr []byte
	resp, err := p.client.CreateChatCompletion(context.WithValue(ctx, errorBodyKey{}, &rawErr), oaiReq)
	if err != nil {
		return nil, openAIError(err, rawErr)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

// openAIError maps go-openai failures onto ConnectionError. raw is the
// response body of a non-2xx reply when one was received.
func openAIError(err error, raw []byte) error {
	connErr := &ConnectionError{Provider: "openai", Body: string(raw), Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		connErr.StatusCode = apiErr.HTTPStatusCode
		if connErr.Body == "" {
			connErr.Body = apiErr.Message
		}
	case errors.As(err, &reqErr):
		connErr.StatusCode = reqErr.HTTPStatusCode
		if connErr.Body == "" {
			connErr.Body = string(reqErr.Body)
		}
		if connErr.Body == "" && reqErr.Err != nil {
			connErr.Body = reqErr.Err.Error()
		}
	}
	return connErr
}

type errorBodyKey struct{}

// errorBodyRecorder copies the body of non-2xx responses into the *[]byte
// stored under errorBodyKey in the request context. go-openai keeps only the
// parsed message.
type errorBodyRecorder struct {
	next http.RoundTripper
}

func (t errorBodyRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}
	dst, ok := req.Context().Value(errorBodyKey{}).(*[]byte)
	if !ok {
		return resp, nil
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	*dst = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
