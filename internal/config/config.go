package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tubeask API configuration.
type Config struct {
	HTTP     HTTPConfig               `yaml:"http"`
	Auth     AuthConfig               `yaml:"auth"`
	Provider ProviderConfig           `yaml:"provider"`
	Cache    CacheConfig              `yaml:"cache"`
	Defaults ChannelDefaults          `yaml:"defaults"`
	Channels map[string]ChannelConfig `yaml:"channels"`
	Logging  LoggingConfig            `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ProviderConfig holds the chat-completion provider settings.
type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSec     int    `yaml:"timeout_sec"`      // deadline for one model call
	RetryBackoffMS int    `yaml:"retry_backoff_ms"` // pause before the single retry
}

// CacheConfig holds answer cache settings. The cache is disabled when no
// addrs are configured.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// ChannelDefaults holds fallbacks applied to channels that omit a field.
type ChannelDefaults struct {
	Model            string `yaml:"model"`
	MaxContextLength int    `yaml:"max_context_length"`
	MaxResults       int    `yaml:"max_results"`
	SystemPrompt     string `yaml:"system_prompt"`
}

// ChannelConfig holds one channel's archive location and limits.
type ChannelConfig struct {
	StorePath        string `yaml:"store_path"`
	Model            string `yaml:"model"`
	MaxContextLength int    `yaml:"max_context_length"`
	MaxResults       int    `yaml:"max_results"`
	SystemPrompt     string `yaml:"system_prompt"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Provider.TimeoutSec <= 0 {
		c.Provider.TimeoutSec = 15
	}
	if c.Provider.RetryBackoffMS <= 0 {
		c.Provider.RetryBackoffMS = 500
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Defaults.Model == "" {
		c.Defaults.Model = "gpt-4o-mini"
	}
	if c.Defaults.MaxContextLength <= 0 {
		c.Defaults.MaxContextLength = 8000
	}
	if c.Defaults.MaxResults <= 0 {
		c.Defaults.MaxResults = 5
	}

	for id, ch := range c.Channels {
		if ch.Model == "" {
			ch.Model = c.Defaults.Model
		}
		if ch.MaxContextLength <= 0 {
			ch.MaxContextLength = c.Defaults.MaxContextLength
		}
		if ch.MaxResults <= 0 {
			ch.MaxResults = c.Defaults.MaxResults
		}
		if ch.SystemPrompt == "" {
			ch.SystemPrompt = c.Defaults.SystemPrompt
		}
		c.Channels[id] = ch
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}
	for id, ch := range c.Channels {
		if id == "" {
			return fmt.Errorf("channel id must not be empty")
		}
		if ch.StorePath == "" {
			return fmt.Errorf("channels.%s.store_path is required", id)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
