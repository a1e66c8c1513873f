package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPath returns ~/.toolchat/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".toolchat", "config.json"), nil
}

// Load loads config from the default path. A missing file yields the defaults
// with environment overrides applied.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		expandHomePaths(cfg)
		return cfg, nil
	}
	return cfg, err
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Runtimes) == 0 {
		cfg.Runtimes = DefaultRuntimes()
	}

	applyEnvOverrides(cfg)
	expandHomePaths(cfg)

	return cfg, nil
}

// applyEnvOverrides applies TOOLCHAT_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"TOOLCHAT_INFERENCE_PROVIDER": &cfg.Inference.Provider,
		"TOOLCHAT_INFERENCE_BASEURL":  &cfg.Inference.BaseURL,
		"TOOLCHAT_INFERENCE_APIKEY":   &cfg.Inference.APIKey,
		"TOOLCHAT_INFERENCE_MODEL":    &cfg.Inference.Model,
		"TOOLCHAT_CLIENT_TOOLMARKER":  &cfg.Client.ToolMarker,
		"TOOLCHAT_CLIENT_HISTORYDIR":  &cfg.Client.HistoryDir,
		"TOOLCHAT_CLIENT_LOGLEVEL":    &cfg.Client.LogLevel,
		"TOOLCHAT_HOST_HTTPADDR":      &cfg.Host.HTTPAddr,
		"TOOLCHAT_HOST_LOGLEVEL":      &cfg.Host.LogLevel,
	}
	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}

	intMap := map[string]*int{
		"TOOLCHAT_INFERENCE_MAXTOKENS":      &cfg.Inference.MaxTokens,
		"TOOLCHAT_INFERENCE_TIMEOUTSECONDS": &cfg.Inference.TimeoutSeconds,
		"TOOLCHAT_CLIENT_MAXTOOLTURNS":      &cfg.Client.MaxToolTurns,
	}
	for env, ptr := range intMap {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			slog.Warn("ignoring invalid integer override", "env", env, "value", val)
			continue
		}
		*ptr = n
	}

	boolMap := map[string]*bool{
		"TOOLCHAT_INFERENCE_NATIVETOOLS": &cfg.Inference.NativeTools,
		"TOOLCHAT_CLIENT_KEEPHISTORY":    &cfg.Client.KeepHistory,
	}
	for env, ptr := range boolMap {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			slog.Warn("ignoring invalid boolean override", "env", env, "value", val)
			continue
		}
		*ptr = b
	}
}

// expandHomePaths expands a leading ~ in path-valued settings.
func expandHomePaths(cfg *Config) {
	cfg.Client.HistoryDir = ExpandHome(cfg.Client.HistoryDir)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// ParseLevel maps a config log level onto slog; unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
