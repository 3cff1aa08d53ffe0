// Package config provides configuration for the relay.
//
// Sources, lowest to highest priority: built-in defaults, an optional YAML
// file, environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Generation providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// EnvConfigFile names the YAML file to load when no path is given explicitly.
const EnvConfigFile = "RELAY_CONFIG"

// Config holds the relay configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`
	RPCPort  int `yaml:"rpc_port"`

	Store        StoreConfig        `yaml:"store"`
	Generation   GenerationConfig   `yaml:"generation"`
	Conversation ConversationConfig `yaml:"conversation"`

	// PolicyFile is a rego module replacing the built-in admission policy.
	PolicyFile string `yaml:"policy_file"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// StoreConfig configures the persistent store.
type StoreConfig struct {
	Driver      string        `yaml:"driver"`
	URL         string        `yaml:"url"`
	PoolSize    int           `yaml:"pool_size"`
	OpTimeoutMs int           `yaml:"op_timeout_ms"`
	OpTimeout   time.Duration `yaml:"-"`
}

// GenerationConfig configures the generation provider.
type GenerationConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	TimeoutMs int           `yaml:"timeout_ms"`
	Timeout   time.Duration `yaml:"-"`
}

// ConversationConfig configures turn orchestration.
type ConversationConfig struct {
	ContextWindow    int  `yaml:"context_window"`
	HistoryLimit     int  `yaml:"history_limit"`
	SessionListLimit int  `yaml:"session_list_limit"`
	SerializeTurns   bool `yaml:"serialize_turns"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort: 8000,
		RPCPort:  8001,
		Store: StoreConfig{
			Driver:      "sqlite3",
			PoolSize:    10,
			OpTimeoutMs: 5000,
		},
		Generation: GenerationConfig{
			Provider:  ProviderGemini,
			MaxTokens: 1024,
			TimeoutMs: 60000,
		},
		Conversation: ConversationConfig{
			ContextWindow:    10,
			HistoryLimit:     50,
			SessionListLimit: 20,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the YAML file at path (or $RELAY_CONFIG when
// path is empty; no file at all is fine) and then from environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.Store.OpTimeout = time.Duration(cfg.Store.OpTimeoutMs) * time.Millisecond
	cfg.Generation.Timeout = time.Duration(cfg.Generation.TimeoutMs) * time.Millisecond
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.RPCPort = getEnvInt("RPC_PORT", c.RPCPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.PolicyFile = getEnv("POLICY_FILE", c.PolicyFile)

	c.Store.Driver = getEnv("DATABASE_DRIVER", c.Store.Driver)
	c.Store.URL = getEnv("DATABASE_URL", c.Store.URL)
	c.Store.PoolSize = getEnvInt("DATABASE_POOL_SIZE", c.Store.PoolSize)
	c.Store.OpTimeoutMs = getEnvInt("DATABASE_TIMEOUT_MS", c.Store.OpTimeoutMs)

	g := &c.Generation
	g.Provider = strings.ToLower(getEnv("LLM_PROVIDER", g.Provider))
	if os.Getenv("GOGO_MODE") == "MOCK" {
		g.Provider = ProviderMock
	}
	g.Model = getEnv("LLM_MODEL", g.Model)
	g.BaseURL = getEnv("LLM_BASE_URL", g.BaseURL)
	g.MaxTokens = getEnvInt("LLM_MAX_TOKENS", g.MaxTokens)
	g.TimeoutMs = getEnvInt("LLM_TIMEOUT_MS", g.TimeoutMs)
	if key := providerKeyEnv(g.Provider); key != "" {
		g.APIKey = getEnv(key, g.APIKey)
	}
	g.APIKey = getEnv("LLM_API_KEY", g.APIKey)

	conv := &c.Conversation
	conv.ContextWindow = getEnvInt("CONTEXT_WINDOW", conv.ContextWindow)
	conv.HistoryLimit = getEnvInt("HISTORY_LIMIT", conv.HistoryLimit)
	conv.SessionListLimit = getEnvInt("SESSION_LIST_LIMIT", conv.SessionListLimit)
	conv.SerializeTurns = getEnvBool("SERIALIZE_TURNS", conv.SerializeTurns)
}

// providerKeyEnv is the credential variable of each provider.
func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// Validate reports the settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL not set"))
	}
	if err := c.ValidateGeneration(); err != nil {
		errs = append(errs, err)
	}
	if c.Conversation.ContextWindow <= 0 {
		errs = append(errs, errors.New("context window must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateGeneration checks only the generation provider settings.
func (c *Config) ValidateGeneration() error {
	switch c.Generation.Provider {
	case ProviderMock:
		return nil
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if c.Generation.APIKey == "" {
			return fmt.Errorf("%s not set", providerKeyEnv(c.Generation.Provider))
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider %q", c.Generation.Provider)
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
