package scratch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subburn/internal/logging"
	"subburn/internal/services"
)

func openManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(t.TempDir(), "", logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestOpenCreatesLockedRunDirectory(t *testing.T) {
	root := t.TempDir()
	m, err := Open(root, "abc", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m.Dir() != filepath.Join(root, "run-abc") || m.RunID() != "abc" {
		t.Fatalf("unexpected run dir %q id %q", m.Dir(), m.RunID())
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), lockFileName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if _, err := Open(root, "abc", nil); err == nil {
		t.Fatal("expected second open of a locked run directory to fail")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(m.Dir()); !os.IsNotExist(err) {
		t.Fatalf("expected run dir removed, stat err=%v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}

func TestOpenFailureIsResourceAllocationError(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	touch(t, parent)
	_, err := Open(parent, "", nil)
	var allocErr *services.ResourceAllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected ResourceAllocationError, got %v", err)
	}
	if _, err := Open(" ", "", nil); !errors.As(err, &allocErr) {
		t.Fatalf("expected ResourceAllocationError for empty root, got %v", err)
	}
}

func TestScopeAllocatesUniqueScratchPaths(t *testing.T) {
	m := openManager(t)
	a := m.Scope("/videos/a.mp4")
	b := m.Scope("/other/a.mp4")

	seen := map[string]bool{}
	for _, scope := range []*Scope{a, b} {
		audio, err := scope.Audio()
		if err != nil {
			t.Fatal(err)
		}
		video, err := scope.Video()
		if err != nil {
			t.Fatal(err)
		}
		subs, err := scope.Subtitle(false, "")
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range []string{audio, video, subs} {
			if seen[p] {
				t.Fatalf("duplicate allocation %q", p)
			}
			seen[p] = true
			if filepath.Dir(p) != m.Dir() {
				t.Fatalf("scratch path %q outside run dir", p)
			}
		}
		if !strings.HasSuffix(audio, ".wav") || !strings.HasSuffix(video, ".mkv") || !strings.HasSuffix(subs, ".srt") {
			t.Fatalf("unexpected extensions: %s %s %s", audio, video, subs)
		}
	}
}

func TestScopeConcurrentAllocation(t *testing.T) {
	m := openManager(t)
	out := t.TempDir()
	var (
		mu    sync.Mutex
		paths = map[string]bool{}
		wg    sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := m.Scope("/videos/same.mp4")
			audio, err1 := scope.Audio()
			final, err2 := scope.Output(out)
			if err1 != nil || err2 != nil {
				t.Errorf("allocation failed: %v %v", err1, err2)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range []string{audio, final} {
				if paths[p] {
					t.Errorf("duplicate path %q", p)
				}
				paths[p] = true
			}
		}()
	}
	wg.Wait()
	if len(paths) != 32 {
		t.Fatalf("expected 32 unique paths, got %d", len(paths))
	}
}

func TestDurablePathsUseOutputDirWithSuffixes(t *testing.T) {
	m := openManager(t)
	out := filepath.Join(t.TempDir(), "out")

	first := m.Scope("/videos/talk.mp4")
	second := m.Scope("/archive/talk.mov")

	srt1, err := first.Subtitle(true, out)
	if err != nil {
		t.Fatal(err)
	}
	final1, err := first.Output(out)
	if err != nil {
		t.Fatal(err)
	}
	final2, err := second.Output(out)
	if err != nil {
		t.Fatal(err)
	}
	srt2, err := second.Subtitle(true, out)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		srt1:   filepath.Join(out, "talk.srt"),
		final1: filepath.Join(out, "talk.subtitled.mkv"),
		final2: filepath.Join(out, "talk-2.subtitled.mkv"),
		srt2:   filepath.Join(out, "talk-2.srt"),
	}
	for got, expected := range want {
		if got != expected {
			t.Fatalf("got %q, want %q", got, expected)
		}
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir created: %v", err)
	}
}

func TestScopeCloseRemovesOnlyScratch(t *testing.T) {
	m := openManager(t)
	out := t.TempDir()
	scope := m.Scope("/videos/a.mp4")

	audio, _ := scope.Audio()
	video, _ := scope.Video()
	kept, _ := scope.Subtitle(true, out)
	final, _ := scope.Output(out)
	for _, p := range []string{audio, video, kept, final} {
		touch(t, p)
	}

	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, p := range []string{audio, video} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected scratch %s removed", p)
		}
	}
	for _, p := range []string{kept, final} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("durable %s must survive: %v", p, err)
		}
	}
	if len(scope.ScratchPaths()) != 0 {
		t.Fatal("expected no tracked scratch paths after close")
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestScopeCloseToleratesUnwrittenPaths(t *testing.T) {
	m := openManager(t)
	scope := m.Scope("/videos/a.mp4")
	if _, err := scope.Audio(); err != nil {
		t.Fatal(err)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("Close with unwritten path: %v", err)
	}
}

func TestCloseLeavesExistingOutputs(t *testing.T) {
	m := openManager(t)
	outDir := t.TempDir()
	scope := m.Scope("/videos/a.mp4")
	final, err := scope.Output(outDir)
	if err != nil {
		t.Fatal(err)
	}
	subtitle, err := scope.Subtitle(true, outDir)
	if err != nil {
		t.Fatal(err)
	}
	touch(t, final)
	touch(t, subtitle)
	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, path := range []string{final, subtitle} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s untouched by Close: %v", path, err)
		}
	}
}

func TestAllocationAfterCloseFails(t *testing.T) {
	m, err := Open(t.TempDir(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	scope := m.Scope("/videos/a.mp4")
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	_, err = scope.Audio()
	var allocErr *services.ResourceAllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected ResourceAllocationError, got %v", err)
	}
	if services.StageOf(err) != services.StageAllocate {
		t.Fatalf("expected allocate stage, got %q", services.StageOf(err))
	}
}

func TestCleanStaleSkipsLockedAndRecentRuns(t *testing.T) {
	root := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)

	stale := filepath.Join(root, "run-stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(stale, "audio.wav"))

	live, err := Open(root, "live", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer live.Close()

	recent := filepath.Join(root, "run-recent")
	unrelated := filepath.Join(root, "keep-me")
	for _, dir := range []string{recent, unrelated} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, dir := range []string{stale, live.Dir(), unrelated} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	result := CleanStale(context.Background(), root, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %#v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("expected only %s removed, got %v", stale, result.Removed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != live.Dir() {
		t.Fatalf("expected live run skipped, got %v", result.Skipped)
	}
	for _, dir := range []string{live.Dir(), recent, unrelated} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("%s should survive: %v", dir, err)
		}
	}
}

func TestCleanStaleInvalidRoots(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, nil)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for root %q", dir)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.srt")
	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "second" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}
	if err := WriteFileAtomic(filepath.Join(dir, "missing", "a.srt"), nil, 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
