package ollama

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds the retry/backoff policy for requests. It is immutable
// once attached to a client.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts"`
	BaseDelay       time.Duration `json:"base_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	ExponentialBase float64       `json:"exponential_base"`
	Jitter          bool          `json:"jitter"`
}

// DefaultRetryConfig returns sensible retry defaults for local model requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// normalized returns a copy with invalid fields replaced by defaults.
func (c RetryConfig) normalized() RetryConfig {
	defaults := DefaultRetryConfig()
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaults.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaults.MaxDelay
	}
	if c.ExponentialBase <= 1 {
		c.ExponentialBase = defaults.ExponentialBase
	}
	return c
}

// Delay computes the backoff before retry attempt i (0-indexed):
// min(base * exponential_base^i, max), scaled by a uniform factor in
// [0.5, 1.0] when jitter is enabled so concurrent callers desynchronize.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempt))
	if capped := float64(c.MaxDelay); delay > capped {
		delay = capped
	}

	if c.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}
