package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Source represents a configuration source
type Source interface {
	Name() string
	Load() (*Config, error)
	Priority() int
}

// Validator validates configuration
type Validator interface {
	Validate(cfg *Config) error
}

// Loader loads configuration from multiple sources, lower priority first so
// later sources override earlier ones.
type Loader struct {
	sources    []Source
	validators []Validator
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		sources:    make([]Source, 0),
		validators: make([]Validator, 0),
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(source Source) {
	l.sources = append(l.sources, source)
}

// AddValidator adds a configuration validator
func (l *Loader) AddValidator(validator Validator) {
	l.validators = append(l.validators, validator)
}

// Load loads configuration with the built-in defaults as base. Sources that
// fail to load are skipped; the final configuration must validate.
func (l *Loader) Load() (*Config, error) {
	sort.Slice(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	config := DefaultConfig()
	for _, source := range l.sources {
		cfg, err := source.Load()
		if err != nil {
			continue
		}
		config = merge(config, cfg)
	}

	// Bool fields bypass the merge, so their environment switches apply to
	// the merged result directly.
	applyEnvBoolOverrides(config)

	for _, validator := range l.validators {
		if err := validator.Validate(config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return config, nil
}

// LoadDefault builds the standard loader: defaults, then the first existing
// config file, then environment variables.
func LoadDefault(explicitPath string) (*Config, error) {
	loader := NewLoader()

	if explicitPath != "" {
		loader.AddSource(NewFileSource(explicitPath))
	} else {
		for _, path := range ConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				loader.AddSource(NewFileSource(path))
				break
			}
		}
	}

	loader.AddSource(NewEnvSource(EnvPrefix))
	loader.AddValidator(NewStandardValidator())

	return loader.Load()
}

// FileSource loads configuration from a YAML/JSON/TOML file via viper.
type FileSource struct {
	path string
}

// NewFileSource creates a new file configuration source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source name
func (f *FileSource) Name() string {
	return fmt.Sprintf("file:%s", f.path)
}

// Priority returns the source priority (lower loads first)
func (f *FileSource) Priority() int {
	return 100
}

// Load loads configuration from the file
func (f *FileSource) Load() (*Config, error) {
	expandedPath := os.ExpandEnv(f.path)

	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", expandedPath)
	}

	v := viper.New()
	v.SetConfigFile(expandedPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", expandedPath, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from %s: %w", expandedPath, err)
	}

	return &config, nil
}

// EnvSource loads configuration from prefixed environment variables, e.g.
// FORGELINE_OLLAMA_SERVICE_URL for ollama.service_url.
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new environment variable configuration source
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix}
}

// Name returns the source name
func (e *EnvSource) Name() string {
	return fmt.Sprintf("env:%s", e.prefix)
}

// Priority returns the source priority (lower loads first)
func (e *EnvSource) Priority() int {
	return 200
}

// Load loads configuration from environment variables
func (e *EnvSource) Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(e.prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Viper only reads env vars for keys it knows about.
	e.setAllKeys(v)

	var config Config
	// Environment values arrive as strings, so decode them weakly.
	weak := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(&config, weak); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}

	// Well-known unprefixed variables win over nothing but lose to the
	// prefixed forms.
	applyWellKnownEnv(&config)

	return &config, nil
}

// setAllKeys registers every configuration key for environment reading.
func (e *EnvSource) setAllKeys(v *viper.Viper) {
	v.SetDefault("app.name", "")
	v.SetDefault("app.log_level", "")
	v.SetDefault("app.log_file", "")

	v.SetDefault("ollama.service_url", "")
	v.SetDefault("ollama.timeout", time.Duration(0))
	v.SetDefault("ollama.default_model", "")

	v.SetDefault("retry.max_attempts", 0)
	v.SetDefault("retry.base_delay", time.Duration(0))
	v.SetDefault("retry.max_delay", time.Duration(0))
	v.SetDefault("retry.exponential_base", 0.0)
	v.SetDefault("retry.jitter", false)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("cache.ttl_hours", 0)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.auto_persist", false)
	v.SetDefault("cache.persist_interval", time.Duration(0))
	v.SetDefault("cache.archive_enabled", false)
}

// merge overlays non-zero fields of override onto base.
func merge(base, override *Config) *Config {
	result := *base

	if override.App.Name != "" {
		result.App.Name = override.App.Name
	}
	if override.App.LogLevel != "" {
		result.App.LogLevel = override.App.LogLevel
	}
	if override.App.LogFile != "" {
		result.App.LogFile = override.App.LogFile
	}

	if override.Ollama.ServiceURL != "" {
		result.Ollama.ServiceURL = override.Ollama.ServiceURL
	}
	if override.Ollama.Timeout > 0 {
		result.Ollama.Timeout = override.Ollama.Timeout
	}
	if override.Ollama.DefaultModel != "" {
		result.Ollama.DefaultModel = override.Ollama.DefaultModel
	}

	if override.Retry.MaxAttempts > 0 {
		result.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelay > 0 {
		result.Retry.BaseDelay = override.Retry.BaseDelay
	}
	if override.Retry.MaxDelay > 0 {
		result.Retry.MaxDelay = override.Retry.MaxDelay
	}
	if override.Retry.ExponentialBase > 1 {
		result.Retry.ExponentialBase = override.Retry.ExponentialBase
	}

	if override.Cache.MaxEntries > 0 {
		result.Cache.MaxEntries = override.Cache.MaxEntries
	}
	if override.Cache.TTLHours > 0 {
		result.Cache.TTLHours = override.Cache.TTLHours
	}
	if override.Cache.Dir != "" {
		result.Cache.Dir = override.Cache.Dir
	}
	if override.Cache.PersistInterval > 0 {
		result.Cache.PersistInterval = override.Cache.PersistInterval
	}

	// Bool fields cannot be distinguished from "absent" here; they are
	// controlled through explicit environment mappings and CLI flags.

	return &result
}
