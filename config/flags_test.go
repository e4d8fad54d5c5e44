package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "", "")
	fs.String("model", "", "")
	fs.String("service-url", "", "")
	fs.Duration("timeout", 0, "")
	return fs
}

func TestFlagSourceUnsetFlagsIgnored(t *testing.T) {
	src := NewFlagSource(testFlagSet())

	cfg, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.App.LogLevel)
	assert.Equal(t, "", cfg.Ollama.DefaultModel)
}

func TestFlagSourceAppliesChangedFlags(t *testing.T) {
	fs := testFlagSet()
	require.NoError(t, fs.Parse([]string{
		"--log-level", "debug",
		"--model", "codellama:13b",
		"--timeout", "45s",
	}))

	cfg, err := NewFlagSource(fs).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "codellama:13b", cfg.Ollama.DefaultModel)
	assert.Equal(t, 45*time.Second, cfg.Ollama.Timeout)
	assert.Equal(t, "", cfg.Ollama.ServiceURL)
}

func TestFlagSourceOverridesOtherSources(t *testing.T) {
	path := writeConfigFile(t, "ollama:\n  default_model: from-file:7b\n")
	fs := testFlagSet()
	require.NoError(t, fs.Parse([]string{"--model", "from-flag:7b"}))

	loader := NewLoader()
	loader.AddSource(NewFileSource(path))
	loader.AddSource(NewFlagSource(fs))
	loader.AddValidator(NewStandardValidator())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-flag:7b", cfg.Ollama.DefaultModel)
}

func TestFlagSourceInvalidLogLevel(t *testing.T) {
	fs := testFlagSet()
	require.NoError(t, fs.Parse([]string{"--log-level", "loud"}))

	_, err := NewFlagSource(fs).Load()
	assert.Error(t, err)
}

func TestFlagSourceNilFlagSet(t *testing.T) {
	cfg, err := NewFlagSource(nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.App.LogLevel)
}
