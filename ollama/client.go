package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bytedance/sonic"

	appErrors "github.com/forgeline/forgeline/errors"
	"github.com/forgeline/forgeline/logging"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig
	Logger  *logging.Logger
}

// Client is a resilient HTTP client for the Ollama daemon. It retries
// transient failures with exponential backoff and classifies errors into
// retryable and terminal. The pooled transport is created lazily on first
// use and released by Close.
type Client struct {
	baseURL string
	timeout time.Duration
	retry   RetryConfig
	logger  *logging.Logger

	mu         sync.Mutex
	httpClient *http.Client
	closed     bool
}

// Result pairs a response with its error for the async call surface.
type Result struct {
	Response *Response
	Err      error
}

// NewClient creates a client. Zero-value config fields fall back to defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		retry:   cfg.Retry.normalized(),
		logger:  cfg.Logger,
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// transport returns the pooled HTTP client, creating it on first use.
func (c *Client) transport() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c.httpClient, nil
}

// Close tears down the connection pool. Safe to call more than once; any
// later request fails instead of silently recreating the pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

// outcomeKind tags the result of a single attempt so the retry loop is an
// explicit state machine instead of control flow by error unwinding.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryConn
	outcomeRetryTimeout
	outcomeRetryStatus // HTTP 5xx
	outcomeTerminal
)

type attemptOutcome struct {
	kind     outcomeKind
	response *Response
	err      error
}

// Request performs an HTTP call against the service with retry/backoff.
// Connection failures, timeouts and HTTP 5xx are retried up to
// MaxAttempts; HTTP 4xx and non-network errors are terminal. Exhausting
// retries on connection failures yields a ServiceUnavailableError, on
// timeouts a ResponseTimeoutError; exhausted 5xx returns a failed Response
// carrying the last error text.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	var last attemptOutcome
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Delay(attempt - 1)
			c.logger.Debugf("retrying %s %s in %s (attempt %d/%d)", method, endpoint, delay, attempt+1, c.retry.MaxAttempts)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		last = c.attempt(ctx, method, endpoint, body, timeout)
		switch last.kind {
		case outcomeSuccess:
			return last.response, nil
		case outcomeTerminal:
			return last.response, last.err
		}
	}

	switch last.kind {
	case outcomeRetryConn:
		return nil, &appErrors.ServiceUnavailableError{
			Message: fmt.Sprintf("cannot reach ollama at %s after %d attempts", c.baseURL, c.retry.MaxAttempts),
			Cause:   last.err,
		}
	case outcomeRetryTimeout:
		return nil, &appErrors.ResponseTimeoutError{
			Timeout:  timeout,
			Attempts: c.retry.MaxAttempts,
			Cause:    last.err,
		}
	}

	return last.response, nil
}

// RequestAsync runs Request in the background and delivers the outcome on
// the returned channel. The channel is buffered, so the result is never lost
// if the caller reads late.
func (c *Client) RequestAsync(ctx context.Context, method, endpoint string, body interface{}, timeout time.Duration) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := c.Request(ctx, method, endpoint, body, timeout)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// attempt executes one HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, endpoint string, body interface{}, timeout time.Duration) attemptOutcome {
	httpClient, err := c.transport()
	if err != nil {
		return attemptOutcome{kind: outcomeTerminal, err: &appErrors.TransportError{Message: err.Error(), Cause: err}}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return attemptOutcome{kind: outcomeTerminal, err: &appErrors.TransportError{Message: "failed to encode request body", Cause: err}}
		}
		reqBody = bytes.NewReader(data)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return attemptOutcome{kind: outcomeTerminal, err: &appErrors.TransportError{Message: "failed to build request", Cause: err}}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		// The parent context being done is the caller's cancellation, not a
		// service failure.
		if ctx.Err() != nil {
			return attemptOutcome{kind: outcomeTerminal, err: ctx.Err()}
		}
		switch classifyNetError(err) {
		case outcomeRetryTimeout:
			c.logger.Debugf("%s %s timed out after %s", method, endpoint, elapsed)
			return attemptOutcome{kind: outcomeRetryTimeout, err: err}
		case outcomeRetryConn:
			c.logger.Debugf("%s %s connection failed: %v", method, endpoint, err)
			return attemptOutcome{kind: outcomeRetryConn, err: err}
		}
		return attemptOutcome{kind: outcomeTerminal, err: &appErrors.TransportError{Message: err.Error(), Cause: err}}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptOutcome{kind: outcomeRetryConn, err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		response := &Response{
			Success:      true,
			StatusCode:   resp.StatusCode,
			ResponseTime: elapsed,
		}
		if len(data) > 0 {
			var payload map[string]interface{}
			if err := sonic.Unmarshal(data, &payload); err == nil {
				response.Data = payload
			}
		}
		return attemptOutcome{kind: outcomeSuccess, response: response}

	case resp.StatusCode >= 500:
		message := fmt.Sprintf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return attemptOutcome{
			kind:     outcomeRetryStatus,
			response: &Response{StatusCode: resp.StatusCode, ErrorMessage: message, ResponseTime: elapsed},
			err:      errors.New(message),
		}

	default: // 3xx/4xx: terminal, no retry
		message := strings.TrimSpace(string(data))
		response := &Response{StatusCode: resp.StatusCode, ErrorMessage: message, ResponseTime: elapsed}
		return attemptOutcome{
			kind:     outcomeTerminal,
			response: response,
			err:      &appErrors.TransportError{StatusCode: resp.StatusCode, Message: message},
		}
	}
}

// classifyNetError sorts a transport-level error into timeout, connection,
// or terminal.
func classifyNetError(err error) outcomeKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return outcomeRetryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeRetryTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errno, ok := opErr.Err.(syscall.Errno); ok {
			if errno == syscall.ECONNREFUSED || errno == syscall.ENETUNREACH || errno == syscall.EHOSTUNREACH {
				return outcomeRetryConn
			}
		}
		if opErr.Op == "dial" || opErr.Op == "read" {
			return outcomeRetryConn
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return classifyNetError(urlErr.Err)
	}

	// Common connection failure strings that don't surface as typed errors.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "no such host", "network is unreachable", "no route to host", "eof"} {
		if strings.Contains(msg, pattern) {
			return outcomeRetryConn
		}
	}

	return outcomeTerminal
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generate calls /api/generate with a non-streaming request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Response, error) {
	req.Stream = false
	return c.Request(ctx, http.MethodPost, endpointGenerate, req, 0)
}

// Chat calls /api/chat with a non-streaming request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	req.Stream = false
	return c.Request(ctx, http.MethodPost, endpointChat, req, 0)
}

// Health checks that the daemon answers at all. Any HTTP response counts,
// including 404 from servers that do not know the probed path.
func (c *Client) Health(ctx context.Context, timeout time.Duration) error {
	resp, err := c.Request(ctx, http.MethodGet, endpointTags, nil, timeout)
	if err != nil {
		var te *appErrors.TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
			return nil
		}
		return err
	}
	if !resp.Success {
		return &appErrors.TransportError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage}
	}
	return nil
}

// Tags lists the installed models via /api/tags.
func (c *Client) Tags(ctx context.Context) (*TagsResponse, error) {
	resp, err := c.Request(ctx, http.MethodGet, endpointTags, nil, 0)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &appErrors.TransportError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage}
	}

	// Re-encode the generic payload into the typed shape.
	data, err := sonic.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode tags payload: %w", err)
	}
	var tags TagsResponse
	if err := sonic.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("failed to parse tags payload: %w", err)
	}
	return &tags, nil
}

// Shared handle: one client per process where the connection pool genuinely
// must be shared. Everything else should take an explicitly constructed
// Client.
var (
	sharedMu     sync.Mutex
	sharedClient *Client
)

// Shared returns the process-wide client, creating it from cfg on first call.
// Later calls ignore cfg.
func Shared(cfg ClientConfig) *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient == nil {
		sharedClient = NewClient(cfg)
	}
	return sharedClient
}

// ResetShared closes and forgets the shared client. Intended for test
// isolation; the old pool is fully released before a new one can activate.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient != nil {
		sharedClient.Close()
		sharedClient = nil
	}
}
