package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix for application environment variables.
const EnvPrefix = "FORGELINE"

// applyWellKnownEnv applies variables the surrounding ecosystem already
// defines, unprefixed. They win over file values but lose to the prefixed
// forms, which viper reads later in the same source.
func applyWellKnownEnv(cfg *Config) {
	// Ollama's own convention for a non-default server address.
	if cfg.Ollama.ServiceURL == "" {
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			cfg.Ollama.ServiceURL = normalizeHost(host)
		}
	}
}

// applyEnvBoolOverrides applies boolean switches that the non-zero merge
// cannot carry. It runs on the fully merged configuration.
func applyEnvBoolOverrides(cfg *Config) {
	if v, ok := envBool(EnvPrefix + "_CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = v
	}
	if v, ok := envBool(EnvPrefix + "_CACHE_AUTO_PERSIST"); ok {
		cfg.Cache.AutoPersist = v
	}
	if v, ok := envBool(EnvPrefix + "_CACHE_ARCHIVE_ENABLED"); ok {
		cfg.Cache.ArchiveEnabled = v
	}
	if v, ok := envBool(EnvPrefix + "_RETRY_JITTER"); ok {
		cfg.Retry.Jitter = v
	}
}

// normalizeHost turns OLLAMA_HOST values like "0.0.0.0:11434" into a URL.
func normalizeHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
