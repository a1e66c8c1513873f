// Package chat implements the interactive terminal loop of the client.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/coopco/toolchat/internal/agent"
	"github.com/coopco/toolchat/internal/providers"
	"github.com/coopco/toolchat/internal/session"
)

// Querier answers one user query. *agent.Agent satisfies it.
type Querier interface {
	ProcessQuery(ctx context.Context, sc agent.SessionConfig, query string) (string, error)
}

// ToolLister reports the tools discovered at handshake.
type ToolLister interface {
	ToolNames() []string
}

// Options configures a REPL.
type Options struct {
	Agent      Querier
	Tools      ToolLister // may be nil
	Session    agent.SessionConfig
	Transcript *session.Transcript // may be nil
	Store      *session.Store      // saves Transcript after each turn when set
	In         io.Reader
	Out        io.Writer
}

// REPL reads queries line by line and prints the answers.
type REPL struct {
	agent      Querier
	tools      ToolLister
	sc         agent.SessionConfig
	transcript *session.Transcript
	store      *session.Store
	in         io.Reader
	out        io.Writer
}

// New creates a REPL.
func New(opts Options) *REPL {
	return &REPL{
		agent:      opts.Agent,
		tools:      opts.Tools,
		sc:         opts.Session,
		transcript: opts.Transcript,
		store:      opts.Store,
		in:         opts.In,
		out:        opts.Out,
	}
}

// SessionConfig returns the settings the next query will use.
func (r *REPL) SessionConfig() agent.SessionConfig { return r.sc }

// Run loops until "quit", end of input or ctx cancellation. Errors from a
// single turn are printed and do not end the loop.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("input read failed", "error", err)
		}
	}()

	fmt.Fprintln(r.out, "Chat started. Type your queries, or 'quit' to exit.")
	for {
		fmt.Fprint(r.out, "\nQuery: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") {
			return nil
		}
		if r.command(line) {
			continue
		}

		answer, err := r.agent.ProcessQuery(ctx, r.sc, line)
		if err != nil {
			fmt.Fprintf(r.out, "\nError: %s\n", describe(err))
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n", answer)
		r.save()
	}
}

// command runs line if it is one of the REPL commands and reports whether it
// was. Command names are matched case-insensitively; any other line, slash or
// not, is a query for the model.
func (r *REPL) command(line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/model":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "Current model: %s\n", r.sc.Model)
			return true
		}
		r.sc.Model = fields[1]
		fmt.Fprintf(r.out, "Model switched to %s\n", r.sc.Model)
	case "/tools":
		var names []string
		if r.tools != nil {
			names = r.tools.ToolNames()
		}
		if len(names) == 0 {
			fmt.Fprintln(r.out, "No tools available.")
			return true
		}
		fmt.Fprintf(r.out, "Tools: %s\n", strings.Join(names, ", "))
	case "/history":
		n := 0
		if r.transcript != nil {
			n = r.transcript.Len()
		}
		fmt.Fprintf(r.out, "History: %d messages\n", n)
	default:
		return false
	}
	return true
}

// describe shortens backend failures to the message inside their JSON error
// body. The full body still goes to the debug log.
func describe(err error) string {
	var connErr *providers.ConnectionError
	if !errors.As(err, &connErr) || connErr.StatusCode == 0 {
		return err.Error()
	}
	slog.Debug("inference backend error", "provider", connErr.Provider, "status", connErr.StatusCode, "body", connErr.Body)
	return fmt.Sprintf("%s backend returned status %d: %s", connErr.Provider, connErr.StatusCode, connErr.Detail())
}

func (r *REPL) save() {
	if r.store == nil || r.transcript == nil {
		return
	}
	if err := r.store.Save(r.transcript); err != nil {
		slog.Warn("failed to save transcript", "error", err)
	}
}
