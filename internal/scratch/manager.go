package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"subburn/internal/logging"
	"subburn/internal/services"
)

const (
	runDirPrefix = "run-"
	lockFileName = ".lock"
)

// Manager owns one run directory under the scratch root and hands out
// collision-free paths to per-job scopes.
type Manager struct {
	runID  string
	dir    string
	lock   *flock.Flock
	logger *slog.Logger

	mu       sync.Mutex
	reserved map[string]struct{}
	closed   bool
}

// Open creates <root>/run-<runID> and locks it for the life of the run. An
// empty runID is replaced with a random one.
func Open(root, runID string, logger *slog.Logger) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, &services.ResourceAllocationError{Err: errors.New("scratch root not configured")}
	}
	if strings.TrimSpace(runID) == "" {
		runID = uuid.NewString()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	dir := filepath.Join(root, runDirPrefix+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &services.ResourceAllocationError{Err: fmt.Errorf("create run directory: %w", err)}
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &services.ResourceAllocationError{Err: fmt.Errorf("lock run directory: %w", err)}
	}
	if !ok {
		return nil, &services.ResourceAllocationError{Err: fmt.Errorf("run directory %s is in use", dir)}
	}
	return &Manager{
		runID:    runID,
		dir:      dir,
		lock:     lock,
		logger:   logging.NewComponentLogger(logger, "scratch"),
		reserved: make(map[string]struct{}),
	}, nil
}

// RunID returns the identifier embedded in the run directory name.
func (m *Manager) RunID() string { return m.runID }

// Dir returns the run directory.
func (m *Manager) Dir() string { return m.dir }

// Scope starts a per-job allocation scope for sourcePath.
func (m *Manager) Scope(sourcePath string) *Scope {
	return &Scope{manager: m, base: baseName(sourcePath)}
}

// Close removes the run directory and releases its lock. Durable outputs
// outside the run directory are untouched.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	removeErr := os.RemoveAll(m.dir)
	unlockErr := m.lock.Unlock()
	if removeErr != nil {
		m.logger.Warn("failed to remove scratch run directory",
			logging.String("path", m.dir),
			logging.Error(removeErr),
			logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until the next stale cleanup"),
		)
		return fmt.Errorf("remove run directory: %w", removeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("release run lock: %w", unlockErr)
	}
	return nil
}

// scratchPath returns a fresh path inside the run directory.
func (m *Manager) scratchPath(base, suffix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", &services.ResourceAllocationError{Err: errors.New("scratch manager closed")}
	}
	for {
		path := filepath.Join(m.dir, fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], suffix))
		if _, taken := m.reserved[path]; taken {
			continue
		}
		m.reserved[path] = struct{}{}
		return path, nil
	}
}

// reserveStem claims <outputDir>/<base>, appending -2, -3, ... when another
// job in this run already holds the name.
func (m *Manager) reserveStem(outputDir, base string) (string, error) {
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &services.ResourceAllocationError{Err: fmt.Errorf("create output directory: %w", err)}
	}
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return "", &services.ResourceAllocationError{Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", &services.ResourceAllocationError{Err: errors.New("scratch manager closed")}
	}
	stem := filepath.Join(abs, base)
	for n := 2; ; n++ {
		if _, taken := m.reserved[stem]; !taken {
			m.reserved[stem] = struct{}{}
			return stem, nil
		}
		stem = filepath.Join(abs, fmt.Sprintf("%s-%d", base, n))
	}
}
