package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FlagSource overlays command line flag values. It has the highest priority,
// so explicit flags beat both the config file and the environment. Only
// flags the user actually set are applied.
type FlagSource struct {
	flags *pflag.FlagSet
}

// NewFlagSource creates a configuration source backed by a flag set.
func NewFlagSource(flags *pflag.FlagSet) *FlagSource {
	return &FlagSource{flags: flags}
}

// Name returns the source name
func (f *FlagSource) Name() string {
	return "flags"
}

// Priority returns the source priority (lower loads first)
func (f *FlagSource) Priority() int {
	return 300
}

// Load builds a sparse Config from changed flags.
func (f *FlagSource) Load() (*Config, error) {
	var config Config
	if f.flags == nil {
		return &config, nil
	}

	if f.changedString("log-level", &config.App.LogLevel) {
		if err := ValidateLogLevel(config.App.LogLevel); err != nil {
			return nil, err
		}
	}
	f.changedString("model", &config.Ollama.DefaultModel)
	f.changedString("service-url", &config.Ollama.ServiceURL)
	f.changedDuration("timeout", &config.Ollama.Timeout)

	return &config, nil
}

func (f *FlagSource) changedString(name string, dst *string) bool {
	if !f.flags.Changed(name) {
		return false
	}
	v, err := f.flags.GetString(name)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func (f *FlagSource) changedDuration(name string, dst *time.Duration) bool {
	if !f.flags.Changed(name) {
		return false
	}
	v, err := f.flags.GetDuration(name)
	if err != nil {
		return false
	}
	*dst = v
	return true
}
