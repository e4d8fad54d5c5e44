package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, ValidateLogLevel(level))
	}
	assert.Error(t, ValidateLogLevel("verbose"))
	assert.Error(t, ValidateLogLevel(""))
}

func TestValidateServiceURL(t *testing.T) {
	assert.NoError(t, ValidateServiceURL("http://localhost:11434"))
	assert.NoError(t, ValidateServiceURL("https://ollama.internal:443"))

	assert.Error(t, ValidateServiceURL(""))
	assert.Error(t, ValidateServiceURL("ftp://localhost:11434"))
	assert.Error(t, ValidateServiceURL("http://"))
}

func TestValidateRetry(t *testing.T) {
	v := NewStandardValidator()

	cfg := DefaultConfig()
	assert.NoError(t, v.Validate(cfg))

	cfg = DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	err := v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")

	cfg = DefaultConfig()
	cfg.Retry.ExponentialBase = 1.0
	err = v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exponential_base")

	cfg = DefaultConfig()
	cfg.Retry.MaxDelay = cfg.Retry.BaseDelay - time.Millisecond
	err = v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_delay")
}

func TestValidateCache(t *testing.T) {
	v := NewStandardValidator()

	cfg := DefaultConfig()
	cfg.Cache.MaxEntries = 0
	err := v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_entries")

	cfg = DefaultConfig()
	cfg.Cache.AutoPersist = true
	cfg.Cache.PersistInterval = 0
	err = v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "persist_interval")
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.LogLevel = "bogus"
	cfg.Ollama.ServiceURL = ""

	err := NewStandardValidator().Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "app:")
	assert.Contains(t, err.Error(), "ollama:")
}
