package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: debug\n"), 0o644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	cfg := w.Current()
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: info\n"), 0o644))

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: warn\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "warn", cfg.App.LogLevel)
		assert.Equal(t, "warn", w.Current().App.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: info\n"), 0o644))

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))

	select {
	case <-changed:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(time.Second):
	}
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	fired := make(chan int, 10)
	for i := 0; i < 5; i++ {
		i := i
		d.debounce(func() { fired <- i })
	}

	select {
	case got := <-fired:
		assert.Equal(t, 4, got)
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}

	// Only the last callback runs.
	select {
	case <-fired:
		t.Fatal("debouncer fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}
