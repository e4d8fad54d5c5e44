package ollama

import (
	"time"
)

// Constants for configuration
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 30 * time.Second

	endpointTags     = "/api/tags"
	endpointGenerate = "/api/generate"
	endpointChat     = "/api/chat"
)

// Response is the outcome of a single logical request, after retries.
type Response struct {
	Success      bool                   `json:"success"`
	StatusCode   int                    `json:"status_code"`
	Data         map[string]interface{} `json:"data,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	ResponseTime time.Duration          `json:"response_time,omitempty"`
}

// Content extracts the model's text from the response payload. The three
// shapes Ollama uses are tried in order: chat ("message.content"), generate
// ("response"), and plain "content". The first present wins.
func (r *Response) Content() string {
	if r.Data == nil {
		return ""
	}
	if msg, ok := r.Data["message"].(map[string]interface{}); ok {
		if content, ok := msg["content"].(string); ok {
			return content
		}
	}
	if response, ok := r.Data["response"].(string); ok {
		return response
	}
	if content, ok := r.Data["content"].(string); ok {
		return content
	}
	return ""
}

// GenerateRequest represents a request to /api/generate
type GenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	System  string                 `json:"system,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ChatMessage is a single message in a chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to /api/chat
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// Model represents a model entry from /api/tags
type Model struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
	Details    struct {
		ParentModel       string   `json:"parent_model"`
		Format            string   `json:"format"`
		Family            string   `json:"family"`
		Families          []string `json:"families"`
		ParameterSize     string   `json:"parameter_size"`
		QuantizationLevel string   `json:"quantization_level"`
	} `json:"details"`
}

// TagsResponse represents the response from /api/tags
type TagsResponse struct {
	Models []Model `json:"models"`
}

// ServiceStatus is the cached result of a service probe.
type ServiceStatus struct {
	IsInstalled  bool      `json:"is_installed"`
	IsRunning    bool      `json:"is_running"`
	Version      string    `json:"version,omitempty"`
	BinaryPath   string    `json:"binary_path,omitempty"`
	ServiceURL   string    `json:"service_url"`
	DetectedAt   time.Time `json:"detected_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Capability describes what a model family can do. Classification is
// heuristic, based on name patterns, not authoritative.
type Capability string

const (
	CapabilityCompletion Capability = "completion"
	CapabilityChat       Capability = "chat"
	CapabilityCode       Capability = "code"
	CapabilityVision     Capability = "vision"
	CapabilityEmbedding  Capability = "embedding"
)

// ModelInfo is catalog metadata for an installed model.
type ModelInfo struct {
	Name          string       `json:"name"`
	Size          int64        `json:"size"`
	Digest        string       `json:"digest"`
	ModifiedAt    time.Time    `json:"modified_at"`
	Capabilities  []Capability `json:"capabilities"`
	Family        string       `json:"family,omitempty"`
	ParameterSize string       `json:"parameter_size,omitempty"`
	Quantization  string       `json:"quantization,omitempty"`
	ContextWindow int64        `json:"context_window"`
}

// HasCapability reports whether the model was classified with cap.
func (m *ModelInfo) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}
