package ollama

import (
	"context"
	"strings"
	"sync"
	"time"

	appErrors "github.com/forgeline/forgeline/errors"
	"github.com/forgeline/forgeline/logging"
)

// catalogTTL bounds how long a fetched model list is trusted.
const catalogTTL = 10 * time.Minute

// TagsFetcher is the slice of the client the catalog needs.
type TagsFetcher interface {
	Tags(ctx context.Context) (*TagsResponse, error)
}

// classificationRule maps a model-name pattern to family metadata. Rules are
// ordered: the first matching pattern wins, so more specific names come
// before the generic ones (codellama before llama).
type classificationRule struct {
	pattern       string
	family        string
	contextWindow int64
	capabilities  []Capability
}

var classificationRules = []classificationRule{
	{"llama-vision", "llama-vision", 131072, []Capability{CapabilityCompletion, CapabilityChat, CapabilityVision}},
	{"llava", "llava", 32768, []Capability{CapabilityCompletion, CapabilityChat, CapabilityVision}},
	{"codellama", "codellama", 16384, []Capability{CapabilityCompletion, CapabilityChat, CapabilityCode}},
	{"codegemma", "gemma", 8192, []Capability{CapabilityCompletion, CapabilityChat, CapabilityCode}},
	{"deepseek-coder", "deepseek", 16384, []Capability{CapabilityCompletion, CapabilityChat, CapabilityCode}},
	{"coder", "qwen", 131072, []Capability{CapabilityCompletion, CapabilityChat, CapabilityCode}},
	{"starcoder", "starcoder", 16384, []Capability{CapabilityCompletion, CapabilityCode}},
	{"embed", "embedding", 8192, []Capability{CapabilityEmbedding}},
	{"llama", "llama", 131072, []Capability{CapabilityCompletion, CapabilityChat}},
	{"mistral", "mistral", 32768, []Capability{CapabilityCompletion, CapabilityChat}},
	{"mixtral", "mistral", 32768, []Capability{CapabilityCompletion, CapabilityChat}},
	{"gemma", "gemma", 8192, []Capability{CapabilityCompletion, CapabilityChat}},
	{"qwen", "qwen", 131072, []Capability{CapabilityCompletion, CapabilityChat}},
	{"phi", "phi", 131072, []Capability{CapabilityCompletion, CapabilityChat}},
	{"deepseek", "deepseek", 65536, []Capability{CapabilityCompletion, CapabilityChat}},
	{"vision", "llama-vision", 131072, []Capability{CapabilityCompletion, CapabilityChat, CapabilityVision}},
}

// Catalog caches the installed-model list and classifies models by name.
type Catalog struct {
	fetcher TagsFetcher
	logger  *logging.Logger

	mu       sync.Mutex
	cached   []ModelInfo
	cachedAt time.Time
}

// NewCatalog creates a catalog backed by fetcher (usually a *Client).
func NewCatalog(fetcher TagsFetcher, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Catalog{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Models lists the installed models, served from cache when younger than the
// TTL unless forceRefresh is set.
func (c *Catalog) Models(ctx context.Context, forceRefresh bool) ([]ModelInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && c.cached != nil && time.Since(c.cachedAt) < catalogTTL {
		return c.cached, nil
	}

	tags, err := c.fetcher.Tags(ctx)
	if err != nil {
		// A stale list beats no list when the fetch fails.
		if c.cached != nil {
			c.logger.Warnf("model list refresh failed, serving stale catalog: %v", err)
			return c.cached, nil
		}
		return nil, err
	}

	models := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		info := Classify(m.Name)
		info.Size = m.Size
		info.Digest = m.Digest
		info.ModifiedAt = m.ModifiedAt
		info.ParameterSize = m.Details.ParameterSize
		info.Quantization = m.Details.QuantizationLevel
		// Prefer the family the server itself reports.
		if m.Details.Family != "" {
			info.Family = m.Details.Family
		}
		models = append(models, info)
	}

	c.cached = models
	c.cachedAt = time.Now()
	return models, nil
}

// Require returns metadata for a model or a ModelNotAvailableError carrying
// the names of the models that are installed.
func (c *Catalog) Require(ctx context.Context, name string) (*ModelInfo, error) {
	models, err := c.Models(ctx, false)
	if err != nil {
		return nil, err
	}

	for i := range models {
		if modelMatches(models[i].Name, name) {
			return &models[i], nil
		}
	}

	available := make([]string, 0, len(models))
	for _, m := range models {
		available = append(available, m.Name)
	}
	return nil, &appErrors.ModelNotAvailableError{Model: name, Available: available}
}

// ClearCache drops the cached model list.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// Classify derives family, context window and capabilities from a model
// name like "llama3.2:3b". Best effort; unknown names get a conservative
// default.
func Classify(name string) ModelInfo {
	info := ModelInfo{
		Name:          name,
		Family:        "unknown",
		ContextWindow: 8192,
		Capabilities:  []Capability{CapabilityCompletion, CapabilityChat},
	}

	base := strings.ToLower(name)
	if idx := strings.Index(base, ":"); idx >= 0 {
		base = base[:idx]
	}

	for _, rule := range classificationRules {
		if strings.Contains(base, rule.pattern) {
			info.Family = rule.family
			info.ContextWindow = rule.contextWindow
			info.Capabilities = rule.capabilities
			return info
		}
	}
	return info
}

// modelMatches compares model names treating a missing tag as ":latest".
func modelMatches(installed, requested string) bool {
	if installed == requested {
		return true
	}
	return strings.TrimSuffix(installed, ":latest") == strings.TrimSuffix(requested, ":latest")
}
