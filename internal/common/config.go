package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Chunking    ChunkingConfig   `toml:"chunking"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	LLM         LLMConfig        `toml:"llm"`
	Processing  ProcessingConfig `toml:"processing"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	DataDir        string `toml:"data_dir"`         // Root directory for badger stores and vector indexes
	UploadsDir     string `toml:"uploads_dir"`      // Directory for uploaded PDF files
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete data on startup for clean test runs
}

// ChunkingConfig controls how extracted page text is split before embedding
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`    // Maximum chunk length in characters
	ChunkOverlap int `toml:"chunk_overlap"` // Characters carried over between adjacent chunks
}

// RetrievalConfig controls similarity search and re-ranking behaviour.
// TermBoost, BoostCap and DistanceFloor are behavioural constants of the
// re-ranker; changing them changes which passages reach the model.
type RetrievalConfig struct {
	TopK            int     `toml:"top_k"`            // Results returned after re-ranking
	OverfetchFactor int     `toml:"overfetch_factor"` // Raw candidates fetched = top_k * factor
	TermBoost       float64 `toml:"term_boost"`       // Distance reduction per matched query term occurrence
	BoostCap        int     `toml:"boost_cap"`        // Max counted occurrences per term
	DistanceFloor   float64 `toml:"distance_floor"`   // Adjusted distance never goes below this
}

type LLMConfig struct {
	Provider          string  `toml:"provider"` // "gemini" or "claude"
	GoogleAPIKey      string  `toml:"google_api_key"`
	AnthropicAPIKey   string  `toml:"anthropic_api_key"`
	EmbedModelName    string  `toml:"embed_model_name"`
	ChatModelName     string  `toml:"chat_model_name"`
	EmbedDimension    int     `toml:"embed_dimension"`
	Temperature       float32 `toml:"temperature"`
	MaxTokens         int     `toml:"max_tokens"`
	Timeout           string  `toml:"timeout"`             // e.g. "60s"
	RequestsPerSecond float64 `toml:"requests_per_second"` // Rate limit for upstream API calls
}

// ProcessingConfig controls the scheduled catch-up run that retries
// documents stuck in processing or error state.
type ProcessingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule (with seconds field)
	Limit    int    `toml:"limit"`    // Max documents per run
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// NewDefaultConfig returns the configuration defaults applied before any
// file or environment override.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			DataDir:    "./data",
			UploadsDir: "./data/uploads",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    750,
			ChunkOverlap: 150,
		},
		Retrieval: RetrievalConfig{
			TopK:            8,
			OverfetchFactor: 2,
			TermBoost:       0.1,
			BoostCap:        3,
			DistanceFloor:   0.01,
		},
		LLM: LLMConfig{
			Provider:          "gemini",
			EmbedModelName:    "gemini-embedding-001",
			ChatModelName:     "gemini-2.0-flash",
			EmbedDimension:    768,
			Temperature:       0.3,
			MaxTokens:         1024,
			Timeout:           "60s",
			RequestsPerSecond: 2,
		},
		Processing: ProcessingConfig{
			Enabled:  true,
			Schedule: "0 */10 * * * *", // every 10 minutes
			Limit:    20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFile loads configuration from a single TOML file, applying
// defaults first and environment overrides last.
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple TOML files. Later files
// override earlier ones; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies FOLIO_* environment variables over the loaded
// configuration. Only the settings operators commonly override at deploy
// time are exposed here.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("FOLIO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("FOLIO_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("FOLIO_DATA_DIR"); v != "" {
		config.Storage.DataDir = v
	}
	if v := os.Getenv("FOLIO_UPLOADS_DIR"); v != "" {
		config.Storage.UploadsDir = v
	}
	if v := os.Getenv("FOLIO_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("FOLIO_GOOGLE_API_KEY"); v != "" {
		config.LLM.GoogleAPIKey = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" && config.LLM.GoogleAPIKey == "" {
		config.LLM.GoogleAPIKey = v
	}
	if v := os.Getenv("FOLIO_ANTHROPIC_API_KEY"); v != "" {
		config.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.AnthropicAPIKey == "" {
		config.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// ApplyFlagOverrides applies command-line flag values over the loaded
// configuration. Flags have the highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 {
		return fmt.Errorf("chunking.chunk_overlap must not be negative, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("retrieval.overfetch_factor must be at least 1, got %d", c.Retrieval.OverfetchFactor)
	}
	if c.LLM.EmbedDimension <= 0 {
		return fmt.Errorf("llm.embed_dimension must be positive, got %d", c.LLM.EmbedDimension)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "claude":
	default:
		return fmt.Errorf("llm.provider must be 'gemini' or 'claude', got %q", c.LLM.Provider)
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
