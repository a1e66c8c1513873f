// Package session keeps the chat transcript of one client process and
// optionally persists it as JSONL.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Message is one finished exchange entry: a user query or the final assistant reply.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Meta is stored as the first line of the JSONL file
type Meta struct {
	Key       string `json:"key"`
	Server    string `json:"server,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Transcript holds the conversation of a chat session. It is append-only.
type Transcript struct {
	Meta     Meta
	messages []Message
	mu       sync.RWMutex
}

// NewTranscript creates an empty transcript identified by key.
func NewTranscript(key, server string) *Transcript {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Transcript{Meta: Meta{Key: key, Server: server, CreatedAt: now, UpdatedAt: now}}
}

// Append adds a message, stamping it if no timestamp is set.
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	if msg.Timestamp == "" {
		msg.Timestamp = now
	}
	t.messages = append(t.messages, msg)
	t.Meta.UpdatedAt = now
}

// Messages returns a copy of all messages.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of recorded messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Store persists transcripts under a directory, one JSONL file per key.
type Store struct {
	dataDir string
}

// NewStore creates a Store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// keyToFilename replaces unsafe characters for use as a filename
func keyToFilename(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(key) + ".jsonl"
}

// Path returns the file a transcript with key is stored in.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dataDir, keyToFilename(key))
}

// Save writes the transcript, replacing any previous file for its key.
func (s *Store) Save(t *Transcript) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	f, err := os.Create(s.Path(t.Meta.Key))
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(t.Meta); err != nil {
		return fmt.Errorf("failed to write transcript meta: %w", err)
	}
	for _, msg := range t.messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
	return nil
}

// Load reads a stored transcript. Malformed message lines are skipped.
func (s *Store) Load(key string) (*Transcript, error) {
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	// First line is Meta
	if !scanner.Scan() {
		return nil, fmt.Errorf("transcript %s is empty", key)
	}
	var meta Meta
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse transcript meta: %w", err)
	}

	t := &Transcript{Meta: meta}
	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		t.messages = append(t.messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return t, nil
}
