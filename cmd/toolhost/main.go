// Command toolhost serves the builtin tools over MCP, on stdio by default or
// over streamable HTTP with --http.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coopco/toolchat/internal/config"
	"github.com/coopco/toolchat/internal/host"
	"github.com/coopco/toolchat/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		httpAddr   string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "toolhost",
		Short: "Serve the fetch-inbox, add and sales-report tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Host.HTTPAddr = httpAddr
			}
			if logLevel != "" {
				cfg.Host.LogLevel = logLevel
			}
			// stdout carries the protocol in stdio mode.
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Host.LogLevel))

			server := host.NewServer(host.Config{Name: cfg.Host.Name, Version: cfg.Host.Version}, tools.NewBuiltinRegistry())
			if cfg.Host.HTTPAddr != "" {
				return host.ServeHTTP(cmd.Context(), cfg.Host.HTTPAddr, server)
			}
			slog.Info("serving tools on stdio", "name", cfg.Host.Name)
			return host.ServeStdio(cmd.Context(), server)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.toolchat/config.json)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(config.ExpandHome(path))
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.ParseLevel(level)}))
}
