package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds connection settings shared by the embedder and the LLM.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string  `yaml:"type"`
	Model             string  `yaml:"model"`
	BatchSize         int     `yaml:"batch_size"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkerConfig configures how transcripts are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig configures how many chunks back each answer.
type RetrievalConfig struct {
	K int `yaml:"k"`
}

// TranscriptConfig configures caption fetching.
type TranscriptConfig struct {
	Languages   []string `yaml:"languages"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// SummarizerConfig configures the transcript summary.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// PromptConfig overrides the answer prompt. It must contain {context} and {question}.
type PromptConfig struct {
	Template string `yaml:"template,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	OpenAI     OpenAIConfig     `yaml:"openai"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Log        LogConfig        `yaml:"log"`
}

const (
	EmbedderOpenAI = "openai"
	EmbedderTFIDF  = "tfidf"
)

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Keys missing from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ytrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/ytrag/config.yaml and returns them.
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

// Validate reports the first setting the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	switch {
	case c.Chunker.ChunkSize <= 0:
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	case c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize:
		return fmt.Errorf("chunker.chunk_overlap must be in [0, %d), got %d", c.Chunker.ChunkSize, c.Chunker.ChunkOverlap)
	case c.Retrieval.K <= 0:
		return fmt.Errorf("retrieval.k must be positive, got %d", c.Retrieval.K)
	case c.LLM.Temperature < 0 || c.LLM.Temperature > 2:
		return fmt.Errorf("llm.temperature must be in [0, 2], got %g", c.LLM.Temperature)
	case c.Embedder.Type != EmbedderOpenAI && c.Embedder.Type != EmbedderTFIDF:
		return fmt.Errorf("embedder.type must be %q or %q, got %q", EmbedderOpenAI, EmbedderTFIDF, c.Embedder.Type)
	case len(c.Transcript.Languages) == 0:
		return errors.New("transcript.languages must not be empty")
	case c.Log.Format != "text" && c.Log.Format != "json":
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Prompt.Template != "" &&
		(!strings.Contains(c.Prompt.Template, "{context}") || !strings.Contains(c.Prompt.Template, "{question}")) {
		return errors.New("prompt.template must contain {context} and {question}")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ytrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		OpenAI:     OpenAIConfig{APIKeyEnv: "OPENAI_API_KEY", TimeoutSecs: 60},
		LLM:        LLMConfig{Model: "gpt-4o", Temperature: 0.2},
		Embedder:   EmbedderConfig{Type: EmbedderOpenAI, Model: "text-embedding-3-small", BatchSize: 64},
		Chunker:    ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Retrieval:  RetrievalConfig{K: 4},
		Transcript: TranscriptConfig{Languages: []string{"en"}, TimeoutSecs: 30},
		Summarizer: SummarizerConfig{MaxSentences: 5},
		Log:        LogConfig{Level: "info", Format: "text", File: "ytrag.log"},
	}
}

// applyConfigDefaults fills settings whose zero value is never meaningful.
func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = def.OpenAI.APIKeyEnv
	}
	if cfg.OpenAI.TimeoutSecs <= 0 {
		cfg.OpenAI.TimeoutSecs = def.OpenAI.TimeoutSecs
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Transcript.TimeoutSecs <= 0 {
		cfg.Transcript.TimeoutSecs = def.Transcript.TimeoutSecs
	}
	if len(cfg.Transcript.Languages) == 0 {
		cfg.Transcript.Languages = def.Transcript.Languages
	}
	if cfg.Summarizer.MaxSentences <= 0 {
		cfg.Summarizer.MaxSentences = def.Summarizer.MaxSentences
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
