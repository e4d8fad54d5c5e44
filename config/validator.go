package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// StandardValidator provides standard configuration validation
type StandardValidator struct{}

// NewStandardValidator creates a new standard validator with built-in rules
func NewStandardValidator() *StandardValidator {
	return &StandardValidator{}
}

// Validate validates the entire configuration
func (v *StandardValidator) Validate(cfg *Config) error {
	var errors []string

	if err := v.validateApp(&cfg.App); err != nil {
		errors = append(errors, fmt.Sprintf("app: %v", err))
	}
	if err := v.validateOllama(&cfg.Ollama); err != nil {
		errors = append(errors, fmt.Sprintf("ollama: %v", err))
	}
	if err := v.validateRetry(&cfg.Retry); err != nil {
		errors = append(errors, fmt.Sprintf("retry: %v", err))
	}
	if err := v.validateCache(&cfg.Cache); err != nil {
		errors = append(errors, fmt.Sprintf("cache: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// validateApp validates application configuration
func (v *StandardValidator) validateApp(app *AppConfig) error {
	var errors []string

	if err := ValidateLogLevel(app.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("log_level: %v", err))
	}

	// Validate log file path if specified
	if app.LogFile != "" {
		dir := filepath.Dir(app.LogFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("log_file: directory does not exist: %s", dir))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// validateOllama validates Ollama service configuration
func (v *StandardValidator) validateOllama(o *OllamaConfig) error {
	var errors []string

	if err := ValidateServiceURL(o.ServiceURL); err != nil {
		errors = append(errors, fmt.Sprintf("service_url: %v", err))
	}

	if o.Timeout <= 0 {
		errors = append(errors, "timeout: must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// validateRetry validates retry policy configuration
func (v *StandardValidator) validateRetry(r *RetryConfig) error {
	var errors []string

	if r.MaxAttempts < 1 {
		errors = append(errors, "max_attempts: must be at least 1")
	}
	if r.MaxAttempts > 10 {
		errors = append(errors, "max_attempts: must not exceed 10")
	}
	if r.BaseDelay <= 0 {
		errors = append(errors, "base_delay: must be positive")
	}
	if r.MaxDelay < r.BaseDelay {
		errors = append(errors, "max_delay: must not be less than base_delay")
	}
	if r.ExponentialBase <= 1 {
		errors = append(errors, "exponential_base: must be greater than 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// validateCache validates response cache configuration
func (v *StandardValidator) validateCache(c *CacheConfig) error {
	var errors []string

	if c.MaxEntries < 1 {
		errors = append(errors, "max_entries: must be at least 1")
	}
	if c.MaxEntries > 100000 {
		errors = append(errors, "max_entries: must not exceed 100000")
	}
	if c.TTLHours <= 0 {
		errors = append(errors, "ttl_hours: must be positive")
	}
	if c.AutoPersist && c.PersistInterval <= 0 {
		errors = append(errors, "persist_interval: must be positive when auto_persist is on")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// Built-in validation functions

// ValidateLogLevel validates log level
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", level)
	}
	return nil
}

// ValidateServiceURL validates the Ollama server address
func ValidateServiceURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid scheme: %s (valid: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host: %s", raw)
	}
	return nil
}
