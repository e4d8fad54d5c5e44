package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// Application
	App AppConfig `yaml:"app" json:"app" mapstructure:"app"`

	// Ollama service
	Ollama OllamaConfig `yaml:"ollama" json:"ollama" mapstructure:"ollama"`

	// Retry policy
	Retry RetryConfig `yaml:"retry" json:"retry" mapstructure:"retry"`

	// Response cache
	Cache CacheConfig `yaml:"cache" json:"cache" mapstructure:"cache"`
}

// AppConfig contains general application settings
type AppConfig struct {
	Name     string `yaml:"name" json:"name" mapstructure:"name"`
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file" mapstructure:"log_file"`
}

// OllamaConfig contains the model service settings
type OllamaConfig struct {
	ServiceURL   string        `yaml:"service_url" json:"service_url" mapstructure:"service_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	DefaultModel string        `yaml:"default_model" json:"default_model" mapstructure:"default_model"`
}

// RetryConfig contains the retry/backoff settings for service calls
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay       time.Duration `yaml:"base_delay" json:"base_delay" mapstructure:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay" json:"max_delay" mapstructure:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base" json:"exponential_base" mapstructure:"exponential_base"`
	Jitter          bool          `yaml:"jitter" json:"jitter" mapstructure:"jitter"`
}

// CacheConfig contains response cache settings
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	MaxEntries      int           `yaml:"max_entries" json:"max_entries" mapstructure:"max_entries"`
	TTLHours        int           `yaml:"ttl_hours" json:"ttl_hours" mapstructure:"ttl_hours"`
	Dir             string        `yaml:"dir" json:"dir" mapstructure:"dir"`
	AutoPersist     bool          `yaml:"auto_persist" json:"auto_persist" mapstructure:"auto_persist"`
	PersistInterval time.Duration `yaml:"persist_interval" json:"persist_interval" mapstructure:"persist_interval"`
	ArchiveEnabled  bool          `yaml:"archive_enabled" json:"archive_enabled" mapstructure:"archive_enabled"`
}

// TTL returns the configured default entry TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// DefaultConfig returns the built-in defaults, used as the lowest-priority
// configuration source.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "forgeline",
			LogLevel: "info",
		},
		Ollama: OllamaConfig{
			ServiceURL:   "http://localhost:11434",
			Timeout:      30 * time.Second,
			DefaultModel: "llama3.2:3b",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			BaseDelay:       time.Second,
			MaxDelay:        30 * time.Second,
			ExponentialBase: 2.0,
			Jitter:          true,
		},
		Cache: CacheConfig{
			Enabled:         true,
			MaxEntries:      100,
			TTLHours:        24,
			Dir:             defaultCacheDir(),
			AutoPersist:     true,
			PersistInterval: 5 * time.Minute,
		},
	}
}

// defaultCacheDir places the cache under the user cache root, falling back
// to a dot directory in $HOME.
func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "forgeline")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".forgeline", "cache")
	}
	return ".forgeline-cache"
}

// ConfigPaths returns the default configuration file paths in order of
// precedence.
func ConfigPaths() []string {
	paths := []string{}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".forgeline.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".forgeline.yaml"),
			filepath.Join(home, ".config", "forgeline", "config.yaml"),
		)
	}
	return paths
}
