package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteVideo creates a placeholder input video under dir and returns its
// path. Transcoder stubs never read the content, so a short Matroska magic
// header is enough for anything that sniffs it.
func WriteVideo(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeFixture(t, path, []byte{0x1a, 0x45, 0xdf, 0xa3, 'v', 'i', 'd', 'e', 'o'}, 0o644)
	return path
}

// WriteScript installs an executable shell script at path.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()
	writeFixture(t, path, []byte(body), 0o755)
}

func writeFixture(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
