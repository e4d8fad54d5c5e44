package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"service unavailable", &ServiceUnavailableError{}, ErrorTypeServiceUnavailable},
		{"service not running", &ServiceNotRunningError{ServiceURL: "http://localhost:11434"}, ErrorTypeServiceNotRunning},
		{"response timeout", &ResponseTimeoutError{Timeout: time.Second, Attempts: 3}, ErrorTypeResponseTimeout},
		{"model not available", &ModelNotAvailableError{Model: "llama3.2"}, ErrorTypeModelNotAvailable},
		{"cache", &CacheError{Op: "persist", Cause: fmt.Errorf("disk full")}, ErrorTypeCache},
		{"transport", &TransportError{StatusCode: 404, Message: "not found"}, ErrorTypeTransport},
		{"untyped", fmt.Errorf("boom"), ErrorType("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeOf(tt.err))
		})
	}
}

func TestTypeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("asking model: %w", &ServiceNotRunningError{ServiceURL: "http://localhost:11434"})

	assert.True(t, IsServiceNotRunning(err))
	assert.True(t, IsServiceError(err))
	assert.Equal(t, ErrorTypeServiceNotRunning, TypeOf(err))
}

func TestModelNotAvailableError_Message(t *testing.T) {
	err := &ModelNotAvailableError{
		Model:     "codellama:13b",
		Available: []string{"llama3.2:3b", "qwen2.5-coder:7b"},
	}

	assert.Contains(t, err.Error(), "codellama:13b")
	assert.Contains(t, err.Error(), "llama3.2:3b, qwen2.5-coder:7b")

	empty := &ModelNotAvailableError{Model: "codellama:13b"}
	assert.Contains(t, empty.Error(), "no models installed")
}

func TestCacheError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := &CacheError{Op: "persist", Path: "/tmp/cache.json", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "/tmp/cache.json")
}

func TestIsServiceError(t *testing.T) {
	assert.True(t, IsServiceError(&ServiceUnavailableError{}))
	assert.True(t, IsServiceError(&ServiceNotRunningError{}))
	assert.False(t, IsServiceError(&TransportError{StatusCode: 404}))
	assert.False(t, IsServiceError(nil))
}
