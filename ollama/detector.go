package ollama

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	appErrors "github.com/forgeline/forgeline/errors"
	"github.com/forgeline/forgeline/logging"
)

const (
	// detectTTL bounds how long a probe result is trusted.
	detectTTL = 5 * time.Minute
	// versionTimeout is the hard deadline for the version subprocess.
	versionTimeout = 5 * time.Second
	// probeTimeout is the deadline for the HTTP health probe.
	probeTimeout = 3 * time.Second

	binaryName = "ollama"
)

// commonInstallPaths are checked when the binary is not on PATH.
var commonInstallPaths = []string{
	"/usr/local/bin/ollama",
	"/usr/bin/ollama",
	"/opt/ollama/ollama",
	"/opt/homebrew/bin/ollama",
}

// Detector probes whether Ollama is installed and running, caching the
// result for a few minutes since "service absent" is an expected steady
// state, not an exceptional one.
type Detector struct {
	serviceURL string
	httpClient *http.Client
	logger     *logging.Logger

	mu       sync.Mutex
	cached   *ServiceStatus
	cachedAt time.Time
}

// NewDetector creates a detector probing serviceURL (default base URL when
// empty).
func NewDetector(serviceURL string, logger *logging.Logger) *Detector {
	if serviceURL == "" {
		serviceURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Detector{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: probeTimeout},
		logger:     logger,
	}
}

// Detect returns the cached status when it is younger than the TTL, else
// re-probes binary, version and HTTP health. Probe failures degrade to
// not-installed/not-running with a message rather than an error.
func (d *Detector) Detect(ctx context.Context, forceRefresh bool) ServiceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !forceRefresh && d.cached != nil && time.Since(d.cachedAt) < detectTTL {
		return *d.cached
	}

	status := d.probe(ctx)
	d.cached = &status
	d.cachedAt = time.Now()
	return status
}

// ClearCache drops the cached status so the next Detect re-probes.
func (d *Detector) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}

// EnsureAvailable returns nil when the service can serve requests, a
// ServiceUnavailableError when Ollama is not installed, and a
// ServiceNotRunningError when installed but not serving. Callers render
// different guidance for the two cases.
func (d *Detector) EnsureAvailable(ctx context.Context) error {
	status := d.Detect(ctx, false)

	// A responding server wins even without a local binary (daemon in a
	// container, remote service URL).
	if status.IsRunning {
		return nil
	}
	if !status.IsInstalled {
		return &appErrors.ServiceUnavailableError{Message: status.ErrorMessage}
	}
	return &appErrors.ServiceNotRunningError{ServiceURL: d.serviceURL}
}

func (d *Detector) probe(ctx context.Context) ServiceStatus {
	status := ServiceStatus{
		ServiceURL: d.serviceURL,
		DetectedAt: time.Now(),
	}

	binaryPath, found := findBinary()
	status.IsInstalled = found
	status.BinaryPath = binaryPath
	if !found {
		status.ErrorMessage = "ollama binary not found on PATH or in common install locations"
	} else {
		status.Version = d.queryVersion(ctx, binaryPath)
	}

	// Probed independently of the binary: the daemon may run in a container
	// or on another port with no local binary at all.
	status.IsRunning = d.probeHTTP(ctx)
	if found && !status.IsRunning {
		status.ErrorMessage = "ollama is installed but the server is not responding"
	}

	return status
}

// findBinary looks for the binary on PATH, then in fixed install locations.
func findBinary() (string, bool) {
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, true
	}

	for _, path := range commonInstallPaths {
		if isExecutable(path) {
			return path, true
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".local", "bin", binaryName)
		if isExecutable(path) {
			return path, true
		}
	}

	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

// queryVersion runs "ollama --version" with a hard timeout.
func (d *Detector) queryVersion(ctx context.Context, binaryPath string) string {
	versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	output, err := exec.CommandContext(versionCtx, binaryPath, "--version").Output()
	if err != nil {
		d.logger.Debugf("version query failed: %v", err)
		return ""
	}

	// Output looks like "ollama version is 0.5.7".
	version := strings.TrimSpace(string(output))
	if idx := strings.LastIndex(version, " "); idx >= 0 {
		version = version[idx+1:]
	}
	return version
}

// probeHTTP checks whether the server answers at all. 200 and 404 both count
// as running: a 404 on a known path still proves a live server process.
func (d *Detector) probeHTTP(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, d.serviceURL+endpointTags, nil)
	if err != nil {
		return false
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Debugf("health probe failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound
}
