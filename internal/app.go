package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/forgeline/forgeline/cache"
	"github.com/forgeline/forgeline/config"
	appErrors "github.com/forgeline/forgeline/errors"
	"github.com/forgeline/forgeline/logging"
	"github.com/forgeline/forgeline/ollama"
)

// App wires the assistance components together. Construction is explicit;
// nothing here reaches for globals, so tests can build an App against an
// httptest server and a temp cache directory.
type App struct {
	config   *config.Config
	logger   *logging.Logger
	client   *ollama.Client
	detector *ollama.Detector
	catalog  *ollama.Catalog
	store    *cache.Store

	mu     sync.Mutex
	closed bool
}

// Answer is the result of an assistance request.
type Answer struct {
	Text      string
	Model     string
	FromCache bool
	Fallback  bool
}

// NewApp creates the application from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	logger, err := logging.NewLogger(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client := ollama.NewClient(ollama.ClientConfig{
		BaseURL: cfg.Ollama.ServiceURL,
		Timeout: cfg.Ollama.Timeout,
		Retry: ollama.RetryConfig{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			BaseDelay:       cfg.Retry.BaseDelay,
			MaxDelay:        cfg.Retry.MaxDelay,
			ExponentialBase: cfg.Retry.ExponentialBase,
			Jitter:          cfg.Retry.Jitter,
		},
		Logger: logger,
	})

	app := &App{
		config:   cfg,
		logger:   logger,
		client:   client,
		detector: ollama.NewDetector(cfg.Ollama.ServiceURL, logger),
		catalog:  ollama.NewCatalog(client, logger),
	}

	if cfg.Cache.Enabled {
		store, err := cache.NewStore(cache.StoreConfig{
			Dir:             cfg.Cache.Dir,
			MaxEntries:      cfg.Cache.MaxEntries,
			DefaultTTL:      cfg.Cache.TTL(),
			AutoPersist:     cfg.Cache.AutoPersist,
			PersistInterval: cfg.Cache.PersistInterval,
			ArchiveEnabled:  cfg.Cache.ArchiveEnabled,
		}, logger)
		if err != nil {
			client.Close()
			logger.Close()
			return nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		app.store = store
	}

	return app, nil
}

// Ask answers a free-form prompt with the configured model. Service outages
// produce a static fallback answer instead of an error so callers always get
// usable text.
func (a *App) Ask(ctx context.Context, prompt string) (*Answer, error) {
	return a.ask(ctx, prompt, "")
}

const errorHelpSystem = "You are a build assistant. The user pastes tool " +
	"output that contains an error. Explain the likely cause in two or " +
	"three sentences and suggest a concrete fix. Be direct."

// ExplainError asks the model to diagnose captured tool output.
func (a *App) ExplainError(ctx context.Context, output string) (*Answer, error) {
	return a.ask(ctx, output, errorHelpSystem)
}

func (a *App) ask(ctx context.Context, prompt, system string) (*Answer, error) {
	model := a.config.Ollama.DefaultModel

	if err := a.detector.EnsureAvailable(ctx); err != nil {
		if appErrors.IsServiceError(err) {
			a.logger.Warnf("service unavailable, using fallback: %v", err)
			return fallbackAnswer(err), nil
		}
		return nil, err
	}

	key := cache.GenerateKey(map[string]interface{}{
		"op":     "generate",
		"model":  model,
		"prompt": prompt,
		"system": system,
	})

	if a.store != nil {
		if v, ok := a.store.Get(key); ok {
			if text, ok := v.(string); ok {
				return &Answer{Text: text, Model: model, FromCache: true}, nil
			}
		}
	}

	resp, err := a.client.Generate(ctx, ollama.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: system,
	})
	if err != nil {
		if appErrors.IsServiceError(err) {
			a.logger.Warnf("request failed, using fallback: %v", err)
			return fallbackAnswer(err), nil
		}
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("model request failed: %s", resp.ErrorMessage)
	}

	text := strings.TrimSpace(resp.Content())
	if text == "" {
		return nil, fmt.Errorf("model returned an empty response")
	}

	if a.store != nil {
		a.store.Put(key, text)
	}

	return &Answer{Text: text, Model: model}, nil
}

// Status reports the detected service state.
func (a *App) Status(ctx context.Context, forceRefresh bool) ollama.ServiceStatus {
	return a.detector.Detect(ctx, forceRefresh)
}

// Models lists installed models with their classified capabilities.
func (a *App) Models(ctx context.Context, forceRefresh bool) ([]ollama.ModelInfo, error) {
	return a.catalog.Models(ctx, forceRefresh)
}

// Cache exposes the response cache, nil when caching is disabled.
func (a *App) Cache() *cache.Store {
	return a.store
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Close releases the cache and the client. Safe to call more than once.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.client.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// fallbackAnswer builds static guidance for an unreachable service.
func fallbackAnswer(err error) *Answer {
	var b strings.Builder
	b.WriteString("The local model service is not reachable, so no generated answer is available.\n")
	if appErrors.IsServiceNotRunning(err) {
		b.WriteString("Ollama is installed but not running. Start it with:\n\n")
		b.WriteString("  ollama serve\n")
	} else {
		b.WriteString("Ollama does not appear to be installed. Install it from https://ollama.com/download,\n")
		b.WriteString("then pull a model, for example:\n\n")
		b.WriteString("  ollama pull llama3.2:3b\n")
	}
	return &Answer{Text: b.String(), Fallback: true}
}
