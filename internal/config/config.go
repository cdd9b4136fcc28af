// Package config loads and validates the assistant engine configuration.
//
// DESIGN: A single YAML file describes the whole process. Values may reference
// environment variables with ${VAR} syntax; they are expanded before parsing.
// Every section has a Validate() method and LoadFromBytes applies defaults for
// anything left unset, so a minimal config (or none at all) still boots.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" parse naturally.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration for the assistant engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Budget    BudgetConfig    `yaml:"budget"`
	Assistant AssistantConfig `yaml:"assistant"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// ProviderConfig holds generation provider settings.
type ProviderConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
}

// BudgetConfig holds the spend ceiling and per-token rates.
// All monetary values are USD; they are converted to nano-dollar fixed point
// once at startup so accumulation never drifts.
type BudgetConfig struct {
	// CeilingUSD is a pointer so an explicit 0 (disable all spend) is
	// distinguishable from unset.
	CeilingUSD      *float64 `yaml:"ceiling_usd"`
	InputRatePer1K  float64  `yaml:"input_rate_per_1k"`
	OutputRatePer1K float64  `yaml:"output_rate_per_1k"`
}

// AssistantConfig holds session and retrieval behavior.
type AssistantConfig struct {
	HistoryWindow int      `yaml:"history_window"`
	RetrievalK    int      `yaml:"retrieval_k"`
	SessionTTL    Duration `yaml:"session_ttl"`
}

// CatalogConfig points at the read-only product catalog snapshot.
type CatalogConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

// Validate checks server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be in [0, 65535], got %d", c.Port)
	}
	return nil
}

// Validate checks provider configuration.
func (c *ProviderConfig) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider.max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("provider.temperature must be in [0, 2], got %f", *c.Temperature)
	}
	return nil
}

// Validate checks budget configuration.
func (c *BudgetConfig) Validate() error {
	if c.CeilingUSD != nil && *c.CeilingUSD < 0 {
		return fmt.Errorf("budget.ceiling_usd must be >= 0, got %f", *c.CeilingUSD)
	}
	if c.InputRatePer1K < 0 {
		return fmt.Errorf("budget.input_rate_per_1k must be >= 0, got %f", c.InputRatePer1K)
	}
	if c.OutputRatePer1K < 0 {
		return fmt.Errorf("budget.output_rate_per_1k must be >= 0, got %f", c.OutputRatePer1K)
	}
	return nil
}

// Validate checks assistant configuration.
func (c *AssistantConfig) Validate() error {
	if c.HistoryWindow < 0 {
		return fmt.Errorf("assistant.history_window must be >= 0, got %d", c.HistoryWindow)
	}
	if c.RetrievalK < 0 {
		return fmt.Errorf("assistant.retrieval_k must be >= 0, got %d", c.RetrievalK)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if err := c.Budget.Validate(); err != nil {
		return err
	}
	return c.Assistant.Validate()
}

// applyDefaults fills in zero values section by section.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(DefaultServerReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(DefaultServerWriteTimeout)
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = Duration(DefaultGenerationTimeout)
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = DefaultMaxCompletionTokens
	}
	if c.Budget.CeilingUSD == nil {
		ceiling := float64(DefaultBudgetCeilingUSD)
		c.Budget.CeilingUSD = &ceiling
	}
	if c.Budget.InputRatePer1K == 0 {
		c.Budget.InputRatePer1K = DefaultInputRatePer1K
	}
	if c.Budget.OutputRatePer1K == 0 {
		c.Budget.OutputRatePer1K = DefaultOutputRatePer1K
	}
	if c.Assistant.HistoryWindow == 0 {
		c.Assistant.HistoryWindow = DefaultHistoryWindow
	}
	if c.Assistant.RetrievalK == 0 {
		c.Assistant.RetrievalK = DefaultRetrievalK
	}
	if c.Assistant.SessionTTL == 0 {
		c.Assistant.SessionTTL = Duration(DefaultSessionTTL)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// LoadFromBytes parses configuration from raw YAML with ${ENV} expansion.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a YAML config file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return LoadFromBytes(data)
}
