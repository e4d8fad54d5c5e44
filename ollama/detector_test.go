package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/forgeline/forgeline/errors"
)

func TestDetector_RunningServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	d := NewDetector(server.URL, nil)
	status := d.Detect(context.Background(), false)

	assert.True(t, status.IsRunning)
	assert.Equal(t, server.URL, status.ServiceURL)
	assert.False(t, status.DetectedAt.IsZero())
}

func TestDetector_404CountsAsRunning(t *testing.T) {
	// The endpoint existing but answering 404 still proves a live server.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDetector(server.URL, nil)
	status := d.Detect(context.Background(), false)

	assert.True(t, status.IsRunning)
}

func TestDetector_ServerErrorIsNotRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDetector(server.URL, nil)
	status := d.Detect(context.Background(), false)

	assert.False(t, status.IsRunning)
}

func TestDetector_DownServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	d := NewDetector(url, nil)
	status := d.Detect(context.Background(), false)

	assert.False(t, status.IsRunning)
}

func TestDetector_CachesResult(t *testing.T) {
	var probes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&probes, 1)
		w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	d := NewDetector(server.URL, nil)

	first := d.Detect(context.Background(), false)
	second := d.Detect(context.Background(), false)
	assert.Equal(t, first.DetectedAt, second.DetectedAt, "second detect should be served from cache")
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes))

	// Force refresh re-probes.
	d.Detect(context.Background(), true)
	assert.Equal(t, int32(2), atomic.LoadInt32(&probes))

	// Clearing the cache re-probes too.
	d.ClearCache()
	d.Detect(context.Background(), false)
	assert.Equal(t, int32(3), atomic.LoadInt32(&probes))
}

func TestDetector_EnsureAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	d := NewDetector(server.URL, nil)
	require.NoError(t, d.EnsureAvailable(context.Background()))
}

func TestDetector_EnsureAvailable_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	d := NewDetector(url, nil)
	err := d.EnsureAvailable(context.Background())
	require.Error(t, err)

	// Which typed error we get depends on whether the host has the binary,
	// but it is always one of the two service errors.
	assert.True(t, appErrors.IsServiceError(err))
}

func TestIsExecutable(t *testing.T) {
	assert.False(t, isExecutable("/nonexistent/path/ollama"))
	assert.False(t, isExecutable(t.TempDir()))
}
