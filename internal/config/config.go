// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (COURSEMATE_* plus ANTHROPIC_API_KEY / GEMINI_API_KEY)
//  2. Config file (./config.yaml or ~/.coursemate/config.yaml)
//  3. Default values
//
// Sensitive fields (API keys) are masked in MarshalJSON and must never be
// logged. Validation is fail-fast: Load returns a wrapped sentinel error
// checkable with errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Anthropic API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the overlap is negative or >= chunk size.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates the history window is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidMaxToolRounds indicates the tool round limit is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidStorePath indicates the vector store path is empty.
	ErrInvalidStorePath = errors.New("invalid store path")
)

// Defaults mirroring the course-document layout this system was built for.
const (
	// DefaultModel is the Anthropic model used for answer generation.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultEmbedderModel is the Gemini embedder model.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChunkSize is the chunk character budget for document splitting.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the character overlap between consecutive chunks.
	DefaultChunkOverlap = 100

	// DefaultMaxResults is the top-K limit for content search.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of past exchanges kept per session.
	DefaultMaxHistory = 2

	// DefaultMaxToolRounds bounds the orchestrator to one tool round-trip.
	DefaultMaxToolRounds = 1

	// MaxAllowedToolRounds caps configured tool rounds to keep query latency sane.
	MaxAllowedToolRounds = 5
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when
// adding new keys or tokens.
type Config struct {
	// Language model configuration
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON
	Model           string `mapstructure:"model" json:"model"`
	MaxTokens       int    `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Document processing configuration
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	DocsPath     string `mapstructure:"docs_path" json:"docs_path"`

	// Retrieval configuration
	MaxResults int    `mapstructure:"max_results" json:"max_results"`
	StorePath  string `mapstructure:"store_path" json:"store_path"`

	// Resolution confidence floor for fuzzy course-name matching.
	// 0 trusts the nearest catalog entry unconditionally.
	MinResolveSimilarity float32 `mapstructure:"min_resolve_similarity" json:"min_resolve_similarity"`

	// Conversation configuration
	MaxHistory    int `mapstructure:"max_history" json:"max_history"`
	MaxToolRounds int `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`

	// Serve mode configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration with priority: env > config file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".coursemate"))
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults", "config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_tokens", 800)
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("docs_path", "./docs")

	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("store_path", "./coursemate_db")
	v.SetDefault("min_resolve_similarity", 0.0)

	v.SetDefault("max_history", DefaultMaxHistory)
	v.SetDefault("max_tool_rounds", DefaultMaxToolRounds)

	v.SetDefault("listen_addr", ":8000")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnv binds environment variables. COURSEMATE_CHUNK_SIZE overrides
// chunk_size and so on; the two provider keys keep their conventional names.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("COURSEMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Anthropic key keeps its conventional variable name. The Gemini
	// embedder key stays out of Config entirely: the googlegenai plugin
	// reads GEMINI_API_KEY from the environment on its own.
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
}

// Validate checks configuration ranges. The API key is validated separately
// by RequireAPIKey because read-only commands (ingest with a local embedder,
// version) do not need it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidModelName)
	}
	if c.ChunkSize < 100 || c.ChunkSize > 10_000 {
		return fmt.Errorf("%w: chunk_size %d not in [100, 10000]", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunkOverlap, c.ChunkOverlap)
	}
	if c.MaxResults < 1 || c.MaxResults > 100 {
		return fmt.Errorf("%w: max_results %d not in [1, 100]", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxHistory < 0 || c.MaxHistory > 1000 {
		return fmt.Errorf("%w: max_history %d not in [0, 1000]", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > MaxAllowedToolRounds {
		return fmt.Errorf("%w: max_tool_rounds %d not in [1, %d]", ErrInvalidMaxToolRounds, c.MaxToolRounds, MaxAllowedToolRounds)
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("%w: store_path must not be empty", ErrInvalidStorePath)
	}
	return nil
}

// RequireAPIKey verifies the Anthropic key is present. Called by commands
// that actually talk to the model.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.AnthropicAPIKey) == "" {
		return fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// MarshalJSON masks sensitive fields so a dumped config never leaks keys.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.AnthropicAPIKey != "" {
		masked.AnthropicAPIKey = "***"
	}
	return json.Marshal(masked)
}
