package config

// Config is the top-level configuration
type Config struct {
	Inference InferenceConfig          `json:"inference"`
	Client    ClientConfig             `json:"client"`
	Runtimes  map[string]RuntimeConfig `json:"runtimes"`
	Host      HostConfig               `json:"host"`
}

// InferenceConfig selects and configures the LLM backend.
type InferenceConfig struct {
	Provider       string  `json:"provider"` // "ollama", "openai" or "anthropic"
	BaseURL        string  `json:"baseUrl"`  // empty uses the provider's own endpoint
	APIKey         string  `json:"apiKey"`
	Model          string  `json:"model"` // empty uses the provider's default model
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	TimeoutSeconds int     `json:"timeoutSeconds"` // 0 disables the timeout
	NativeTools    bool    `json:"nativeTools"`    // false advertises tools only through the [CALL-TOOL] prompt
}

type ClientConfig struct {
	MaxToolTurns int    `json:"maxToolTurns"`
	ToolMarker   string `json:"toolMarker"`
	KeepHistory  bool   `json:"keepHistory"`
	HistoryDir   string `json:"historyDir"`
	LogLevel     string `json:"logLevel"`
}

// RuntimeConfig is the interpreter used to launch a server script with a given extension.
type RuntimeConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type HostConfig struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	HTTPAddr string `json:"httpAddr"`
	LogLevel string `json:"logLevel"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			Provider:    "ollama",
			NativeTools: true,
		},
		Client: ClientConfig{
			MaxToolTurns: 5,
			ToolMarker:   "[CALL-TOOL]",
			HistoryDir:   "~/.toolchat/history",
			LogLevel:     "warn",
		},
		Runtimes: DefaultRuntimes(),
		Host: HostConfig{
			Name:     "toolhost",
			Version:  "v0.1.0",
			LogLevel: "info",
		},
	}
}

// DefaultRuntimes maps server script extensions to the programs that run them.
func DefaultRuntimes() map[string]RuntimeConfig {
	return map[string]RuntimeConfig{
		".py": {Command: "python"},
		".js": {Command: "node"},
		".go": {Command: "go", Args: []string{"run"}},
	}
}
