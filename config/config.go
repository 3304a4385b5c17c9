package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
)

// Supported model providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// ThaiRecipesURL is the default knowledge document of the PDF assistant.
const ThaiRecipesURL = "https://phi-public.s3.amazonaws.com/recipes/ThaiRecipes.pdf"

// Config is the complete configuration record.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Agent     AgentConfig     `yaml:"agent"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig selects the language model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// AgentConfig holds the tool loop settings shared by all agents.
type AgentConfig struct {
	MaxToolRounds    int           `yaml:"max_tool_rounds"`
	ToolTimeout      time.Duration `yaml:"tool_timeout"`
	MaxParallelTools int           `yaml:"max_parallel_tools"`
	ShowToolCalls    bool          `yaml:"show_tool_calls"`
	// LogToolStarts logs every tool call before it runs; the CLI enables it
	// at debug level.
	LogToolStarts bool `yaml:"log_tool_starts"`
	Markdown      bool `yaml:"markdown"`
	// Concurrent runs team members concurrently.
	Concurrent bool `yaml:"concurrent"`
}

// KnowledgeConfig configures the PDF knowledge base.
type KnowledgeConfig struct {
	URLs         []string `yaml:"urls"`
	Collection   string   `yaml:"collection"`
	PersistDir   string   `yaml:"persist_dir"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	NumDocuments int      `yaml:"num_documents"`
	Recreate     bool     `yaml:"recreate"`
	Upsert       bool     `yaml:"upsert"`
}

// EmbedderConfig configures the OpenAI compatible embeddings endpoint.
type EmbedderConfig struct {
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// StorageConfig configures chat history and vector storage. An empty
// DatabaseURL keeps history in SQLite at SQLitePath and vectors in chromem.
type StorageConfig struct {
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	// HistoryTable prefixes the chat history tables.
	HistoryTable string `yaml:"history_table"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Backend string `yaml:"backend"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:    ProviderGroq,
			Name:        "llama-3.3-70b-versatile",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Agent: AgentConfig{
			MaxToolRounds: 10,
			ToolTimeout:   30 * time.Second,
			ShowToolCalls: true,
			Markdown:      true,
		},
		Knowledge: KnowledgeConfig{
			URLs:         []string{ThaiRecipesURL},
			Collection:   "recipes",
			ChunkSize:    1000,
			ChunkOverlap: 100,
			NumDocuments: 5,
			Upsert:       true,
		},
		Embedder: EmbedderConfig{
			Model:      "all-minilm",
			BaseURL:    "http://localhost:11434/v1/",
			APIKey:     "ollama",
			Dimensions: 384,
		},
		Storage: StorageConfig{
			SQLitePath:   "agentcrew.db",
			HistoryTable: "pdf_assistant",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			RequestTimeout: 2 * time.Minute,
			MaxConcurrent:  8,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Format:  "text",
			Backend: "slog",
		},
	}
}

// LoadDotEnv loads the given .env files, or ./.env when none are given.
// Missing files are ignored and existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves the configuration from defaults, the optional YAML file at
// path and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML into cfg. Unknown fields are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.Provider, "AGENTCREW_PROVIDER")
	setString(&c.Model.Name, "AGENTCREW_MODEL")
	setString(&c.Model.BaseURL, "AGENTCREW_BASE_URL")
	setString(&c.Storage.DatabaseURL, "AGENTCREW_DB_URL")
	setString(&c.Storage.SQLitePath, "AGENTCREW_SQLITE_PATH")
	setString(&c.Embedder.BaseURL, "AGENTCREW_EMBEDDER_URL")
	setString(&c.Embedder.Model, "AGENTCREW_EMBEDDER_MODEL")
	setString(&c.Server.Addr, "AGENTCREW_ADDR")
	setString(&c.Logging.Level, "AGENTCREW_LOG_LEVEL")
	setString(&c.Logging.Format, "AGENTCREW_LOG_FORMAT")
	setString(&c.Logging.Backend, "AGENTCREW_LOG_BACKEND")

	if v, ok := os.LookupEnv("AGENTCREW_KNOWLEDGE_URLS"); ok {
		c.Knowledge.URLs = splitList(v)
	}
	if v, ok := os.LookupEnv("AGENTCREW_SHOW_TOOL_CALLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.ConfigError("AGENTCREW_SHOW_TOOL_CALLS", "invalid boolean %q", v)
		}
		c.Agent.ShowToolCalls = b
	}
	if v, ok := os.LookupEnv("AGENTCREW_MAX_TOOL_ROUNDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.ConfigError("AGENTCREW_MAX_TOOL_ROUNDS", "invalid integer %q", v)
		}
		c.Agent.MaxToolRounds = n
	}
	return nil
}

// Validate reports the first invalid field as a configuration error.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return core.ConfigError("model.provider", "unknown provider %q", c.Model.Provider)
	}
	if c.Agent.MaxToolRounds < 0 {
		return core.ConfigError("agent.max_tool_rounds", "must not be negative")
	}
	if c.Knowledge.ChunkSize <= 0 {
		return core.ConfigError("knowledge.chunk_size", "must be positive")
	}
	if c.Embedder.Dimensions <= 0 {
		return core.ConfigError("embedder.dimensions", "must be positive")
	}
	if u := c.Storage.DatabaseURL; u != "" && !strings.HasPrefix(u, "postgres://") && !strings.HasPrefix(u, "postgresql://") {
		return core.ConfigError("storage.database_url", "expected a postgres:// URL")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return core.ConfigError("logging.level", "%v", err)
	}
	return nil
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = lvl
	}
	if c.Logging.Format != "" {
		lc.Format = c.Logging.Format
	}
	if c.Logging.Backend != "" {
		lc.Backend = c.Logging.Backend
	}
	return lc
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
