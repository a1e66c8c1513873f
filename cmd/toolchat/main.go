// Command toolchat is an interactive chat client that lets a local model
// call tools exposed by an MCP server script.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopco/toolchat/internal/agent"
	"github.com/coopco/toolchat/internal/chat"
	"github.com/coopco/toolchat/internal/config"
	"github.com/coopco/toolchat/internal/mcpclient"
	"github.com/coopco/toolchat/internal/providers"
	"github.com/coopco/toolchat/internal/session"
)

const version = "v0.1.0"

type flags struct {
	configPath string
	model      string
	provider   string
	baseURL    string
	logLevel   string
	resume     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:     "toolchat [flags] <path-to-server-script>",
		Short:   "Chat with a local model that can call MCP server tools",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), f, args[0], in, out, cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(out)
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default ~/.toolchat/config.json)")
	cmd.Flags().StringVar(&f.model, "model", "", "model to start with")
	cmd.Flags().StringVar(&f.provider, "provider", "", "inference provider: ollama, openai or anthropic")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "inference endpoint URL")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().StringVar(&f.resume, "resume", "", "continue a saved conversation by key (turns on history)")
	return cmd
}

func loadConfig(f flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromFile(config.ExpandHome(f.configPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.model != "" {
		cfg.Inference.Model = f.model
	}
	if f.provider != "" {
		cfg.Inference.Provider = f.provider
	}
	if f.baseURL != "" {
		cfg.Inference.BaseURL = f.baseURL
	}
	if f.logLevel != "" {
		cfg.Client.LogLevel = f.logLevel
	}
	if f.resume != "" {
		cfg.Client.KeepHistory = true
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = providers.DefaultModel(cfg.Inference.Provider)
	}
	return cfg, nil
}

// run connects to the tool host and drives the chat loop. The session is
// closed on every path, including a failed connect.
func run(ctx context.Context, f flags, scriptPath string, in io.Reader, out, errOut io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: config.ParseLevel(cfg.Client.LogLevel)})))

	provider, err := providers.New(cfg.Inference)
	if err != nil {
		return err
	}

	transcript, store, err := openTranscript(cfg.Client, f.resume, scriptPath)
	if err != nil {
		return err
	}

	var sess *mcpclient.Session
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("failed to close tool host session", "error", cerr)
		}
	}()

	sess, err = mcpclient.Connect(ctx, scriptPath, mcpclient.Options{
		Runtimes:      runtimes(cfg.Runtimes),
		ClientName:    "toolchat",
		ClientVersion: version,
		Stderr:        errOut,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to server with tools: %v\n", sess.ToolNames())

	a := agent.New(agent.Config{
		Provider:     provider,
		Tools:        sess,
		Transcript:   transcript,
		KeepHistory:  cfg.Client.KeepHistory,
		MaxToolTurns: cfg.Client.MaxToolTurns,
		ToolMarker:   cfg.Client.ToolMarker,
		OnToolCall: func(e agent.ToolEvent) {
			slog.Info("tool called", "name", e.Name, "arguments", e.Arguments, "error", e.Err)
		},

		DirectiveOnly: !cfg.Inference.NativeTools,
	})

	repl := chat.New(chat.Options{
		Agent: a,
		Tools: sess,
		Session: agent.SessionConfig{
			Model:       cfg.Inference.Model,
			Temperature: cfg.Inference.Temperature,
			MaxTokens:   cfg.Inference.MaxTokens,
		},
		Transcript: transcript,
		Store:      store,
		In:         in,
		Out:        out,
	})
	return repl.Run(ctx)
}

// openTranscript starts a new conversation, or loads the saved one named by
// resume. The store is nil unless history is kept.
func openTranscript(cfg config.ClientConfig, resume, scriptPath string) (*session.Transcript, *session.Store, error) {
	if !cfg.KeepHistory {
		return session.NewTranscript(newKey(), filepath.Base(scriptPath)), nil, nil
	}
	store := session.NewStore(cfg.HistoryDir)
	if resume == "" {
		return session.NewTranscript(newKey(), filepath.Base(scriptPath)), store, nil
	}
	t, err := store.Load(resume)
	if err != nil {
		return nil, nil, fmt.Errorf("resume %s: %w", resume, err)
	}
	slog.Info("resumed conversation", "key", resume, "messages", t.Len())
	return t, store, nil
}

func newKey() string {
	return "chat_" + time.Now().Format("20060102_150405")
}

func runtimes(in map[string]config.RuntimeConfig) map[string]mcpclient.Runtime {
	out := make(map[string]mcpclient.Runtime, len(in))
	for ext, rt := range in {
		out[ext] = mcpclient.Runtime{Command: rt.Command, Args: rt.Args}
	}
	return out
}
