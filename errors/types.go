package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType classifies failures of the assistance core.
type ErrorType string

const (
	// Service errors
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeServiceNotRunning  ErrorType = "service_not_running"

	// Request errors
	ErrorTypeResponseTimeout   ErrorType = "response_timeout"
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypeModelNotAvailable ErrorType = "model_not_available"

	// Persistence errors
	ErrorTypeCache ErrorType = "cache"
)

// ServiceUnavailableError indicates Ollama is not installed on this machine.
type ServiceUnavailableError struct {
	Message string
	Cause   error
}

func (e *ServiceUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "ollama is not installed"
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Cause }

// ServiceNotRunningError indicates Ollama is installed but not serving requests.
type ServiceNotRunningError struct {
	ServiceURL string
	Cause      error
}

func (e *ServiceNotRunningError) Error() string {
	if e.ServiceURL != "" {
		return fmt.Sprintf("ollama is installed but not running at %s", e.ServiceURL)
	}
	return "ollama is installed but not running"
}

func (e *ServiceNotRunningError) Unwrap() error { return e.Cause }

// ResponseTimeoutError indicates a request exceeded its deadline after all retries.
type ResponseTimeoutError struct {
	Timeout  time.Duration
	Attempts int
	Cause    error
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s (%d attempts)", e.Timeout, e.Attempts)
}

func (e *ResponseTimeoutError) Unwrap() error { return e.Cause }

// ModelNotAvailableError indicates a requested model is absent from the catalog.
// Available carries the models that are present so callers can display them.
type ModelNotAvailableError struct {
	Model     string
	Available []string
}

func (e *ModelNotAvailableError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("model %q is not available (no models installed)", e.Model)
	}
	return fmt.Sprintf("model %q is not available (installed: %s)", e.Model, strings.Join(e.Available, ", "))
}

// CacheError indicates a cache persistence failure. In-memory cache state
// survives the failure; the caller may retry the persist.
type CacheError struct {
	Op    string
	Path  string
	Cause error
}

func (e *CacheError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cache %s failed for %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("cache %s failed: %v", e.Op, e.Cause)
}

func (e *CacheError) Unwrap() error { return e.Cause }

// TransportError indicates a terminal request failure: a non-retryable HTTP
// status or a non-network error.
type TransportError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return "request failed"
}

func (e *TransportError) Unwrap() error { return e.Cause }

// TypeOf reports the taxonomy class of an error, or "" for untyped errors.
func TypeOf(err error) ErrorType {
	switch {
	case IsServiceUnavailable(err):
		return ErrorTypeServiceUnavailable
	case IsServiceNotRunning(err):
		return ErrorTypeServiceNotRunning
	case IsResponseTimeout(err):
		return ErrorTypeResponseTimeout
	case IsModelNotAvailable(err):
		return ErrorTypeModelNotAvailable
	case IsCacheError(err):
		return ErrorTypeCache
	case IsTransportError(err):
		return ErrorTypeTransport
	}
	return ""
}

func IsServiceUnavailable(err error) bool {
	var target *ServiceUnavailableError
	return errors.As(err, &target)
}

func IsServiceNotRunning(err error) bool {
	var target *ServiceNotRunningError
	return errors.As(err, &target)
}

func IsResponseTimeout(err error) bool {
	var target *ResponseTimeoutError
	return errors.As(err, &target)
}

func IsModelNotAvailable(err error) bool {
	var target *ModelNotAvailableError
	return errors.As(err, &target)
}

func IsCacheError(err error) bool {
	var target *CacheError
	return errors.As(err, &target)
}

func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsServiceError reports whether the error means the backend cannot serve at
// all, installed or not. Callers use this to switch to static fallbacks.
func IsServiceError(err error) bool {
	return IsServiceUnavailable(err) || IsServiceNotRunning(err)
}
