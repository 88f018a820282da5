package scratch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"subburn/internal/logging"
)

// CleanStaleResult lists what a stale sweep did with each candidate
// directory. Paths that failed to remove are keyed by path in Errors.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  map[string]error
}

func (r *CleanStaleResult) fail(path string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]error)
	}
	r.Errors[path] = err
}

// CleanStale removes run directories older than maxAge left behind by runs
// that did not exit cleanly. Directories whose lock is still held belong to
// a live run and are skipped. A missing root is not an error.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if logger == nil {
		logger = logging.NewNop()
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(root, err)
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), runDirPrefix) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.fail(dir, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		removed, err := removeUnlocked(dir)
		switch {
		case err != nil:
			result.fail(dir, err)
			logging.WarnWithContext(logger, "failed to remove stale scratch directory", "scratch_cleanup_failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		case !removed:
			result.Skipped = append(result.Skipped, dir)
			logger.Debug("skipping scratch directory held by a running batch", logging.String("path", dir))
		default:
			result.Removed = append(result.Removed, dir)
			logger.Info("removed stale scratch directory",
				logging.String("path", dir),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Minute)),
				logging.String(logging.FieldEventType, "scratch_cleanup"),
			)
		}
	}
	return result
}

// removeUnlocked deletes dir only if its run lock can be taken, reporting
// false when another process holds it.
func removeUnlocked(dir string) (bool, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return false, err
	}
	defer func() { _ = lock.Unlock() }()
	return true, os.RemoveAll(dir)
}
