package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"contractqa/internal/domain"
)

// Retrieval control bounds exposed in the UI.
const (
	MinTopK            = 1
	MaxTopK            = 5
	MinMaxContextChars = 100
	MaxMaxContextChars = 2000
)

// OpenAIConfig holds configuration for an OpenAI-compatible HTTP endpoint.
// Setting api_version targets Azure OpenAI; base_url is then the deployment URL.
type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	APIVersion string `yaml:"api_version,omitempty"`
	Model      string `yaml:"model"`
}

// OllamaConfig holds configuration for an Ollama server. An empty host falls
// back to OLLAMA_HOST.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// LocalEmbedderConfig configures the offline hashed embedder.
type LocalEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type          string               `yaml:"type"`
	TimeoutSecs   int                  `yaml:"timeout_secs"`
	BatchSize     int                  `yaml:"batch_size"`
	MaxConcurrent int                  `yaml:"max_concurrent"`
	OpenAI        *OpenAIConfig        `yaml:"openai,omitempty"`
	Ollama        *OllamaConfig        `yaml:"ollama,omitempty"`
	Local         *LocalEmbedderConfig `yaml:"local,omitempty"`
}

// Timeout returns the per-call embedding deadline.
func (c EmbedderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// CompletionConfig selects and configures the chat-completion model.
type CompletionConfig struct {
	Type        string        `yaml:"type"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
	Ollama      *OllamaConfig `yaml:"ollama,omitempty"`
}

// Timeout returns the per-call completion deadline.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetrievalConfig holds the initial values of the retrieval controls.
type RetrievalConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LogConfig controls the log level and destination. An empty File means a
// per-run file under the user cache dir in TUI mode.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Completion CompletionConfig `yaml:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/contractqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/contractqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks sizing, control bounds and backend names.
func (c *AppConfig) Validate() error {
	switch {
	case c.Chunker.ChunkSize <= 0:
		return invalid("chunker.chunk_size", c.Chunker.ChunkSize, "must be positive")
	case c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize:
		return invalid("chunker.overlap", c.Chunker.Overlap, "must be in [0, chunk_size)")
	case c.Retrieval.TopK < MinTopK || c.Retrieval.TopK > MaxTopK:
		return invalid("retrieval.top_k", c.Retrieval.TopK, fmt.Sprintf("must be in [%d, %d]", MinTopK, MaxTopK))
	case c.Retrieval.MaxContextChars < MinMaxContextChars || c.Retrieval.MaxContextChars > MaxMaxContextChars:
		return invalid("retrieval.max_context_chars", c.Retrieval.MaxContextChars,
			fmt.Sprintf("must be in [%d, %d]", MinMaxContextChars, MaxMaxContextChars))
	case c.Completion.MaxTokens <= 0:
		return invalid("completion.max_tokens", c.Completion.MaxTokens, "must be positive")
	case c.Completion.Temperature < 0 || c.Completion.Temperature > 2:
		return invalid("completion.temperature", c.Completion.Temperature, "must be in [0, 2]")
	case c.Embedder.BatchSize < 0:
		return invalid("embedder.batch_size", c.Embedder.BatchSize, "must not be negative")
	}
	switch c.Embedder.Type {
	case "local", "openai", "ollama":
	default:
		return invalid("embedder.type", c.Embedder.Type, "unknown embedder (local, openai, ollama)")
	}
	switch c.Completion.Type {
	case "openai", "ollama":
	default:
		return invalid("completion.type", c.Completion.Type, "unknown completion backend (openai, ollama)")
	}
	switch c.Summarizer.Type {
	case "frequency", "none", "":
	default:
		return invalid("summarizer.type", c.Summarizer.Type, "unknown summarizer (frequency, none)")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return &domain.ConfigurationError{Field: field, Value: value, Reason: reason}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "contractqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:   EmbedderConfig{Type: "local"},
		Completion: CompletionConfig{Type: "openai"},
		Summarizer: SummarizerConfig{Type: "frequency"},
		Log:        LogConfig{Level: "info"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 1000
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "local"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		fillOpenAI(cfg.Embedder.OpenAI, "text-embedding-3-small")
		if cfg.Embedder.BatchSize == 0 {
			cfg.Embedder.BatchSize = 64
		}
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaConfig{}
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "nomic-embed-text"
		}
	case "local":
		if cfg.Embedder.Local == nil {
			cfg.Embedder.Local = &LocalEmbedderConfig{}
		}
		if cfg.Embedder.Local.Dimension == 0 {
			cfg.Embedder.Local.Dimension = 512
		}
	}
	if cfg.Embedder.BatchSize > 0 && cfg.Embedder.MaxConcurrent == 0 {
		cfg.Embedder.MaxConcurrent = 4
	}

	if cfg.Completion.Type == "" {
		cfg.Completion.Type = "openai"
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 512
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 120
	}
	switch cfg.Completion.Type {
	case "openai":
		if cfg.Completion.OpenAI == nil {
			cfg.Completion.OpenAI = &OpenAIConfig{}
		}
		fillOpenAI(cfg.Completion.OpenAI, "gpt-4o-mini")
	case "ollama":
		if cfg.Completion.Ollama == nil {
			cfg.Completion.Ollama = &OllamaConfig{}
		}
		if cfg.Completion.Ollama.Model == "" {
			cfg.Completion.Ollama.Model = "llama3.1"
		}
	}
}

func fillOpenAI(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
}
