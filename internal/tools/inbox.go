package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// InboxMessage is a single message returned by fetch-inbox.
type InboxMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// InboxSource returns the messages addressed to an email address.
type InboxSource func(ctx context.Context, address string) ([]InboxMessage, error)

type FetchInboxArgs struct {
	EmailAddress string `json:"email_address" jsonschema:"description=Email address whose inbox should be fetched"`
}

// FetchInboxTool looks up a user's inbox. The default source is a fixed stub
// until a real mail backend is plugged in.
type FetchInboxTool struct {
	source InboxSource
}

func NewFetchInboxTool() *FetchInboxTool { return &FetchInboxTool{source: stubInbox} }

// NewFetchInboxToolWithSource swaps in a different mail backend.
func NewFetchInboxToolWithSource(src InboxSource) *FetchInboxTool {
	return &FetchInboxTool{source: src}
}

var fetchInboxSchema = GenerateSchema[FetchInboxArgs]()

func (t *FetchInboxTool) Name() string                { return "fetch-inbox" }
func (t *FetchInboxTool) Description() string         { return "Get the email inbox of a user" }
func (t *FetchInboxTool) Parameters() json.RawMessage { return fetchInboxSchema }

func (t *FetchInboxTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var args FetchInboxArgs
	if err := decodeArgs(params, &args); err != nil {
		return "", err
	}
	addr := strings.TrimSpace(args.EmailAddress)
	if addr == "" {
		return "", errors.New("email_address is required")
	}

	msgs, err := t.source(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("fetch inbox for %s: %w", addr, err)
	}
	if msgs == nil {
		msgs = []InboxMessage{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("failed to encode inbox: %w", err)
	}
	return string(data), nil
}

func stubInbox(_ context.Context, address string) ([]InboxMessage, error) {
	return []InboxMessage{{
		From:    "soporte@gmail.com",
		To:      address,
		Subject: "ayuda",
		Body:    "No puedo entrar a mi cuenta",
	}}, nil
}
