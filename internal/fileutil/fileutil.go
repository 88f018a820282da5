package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// partialSuffix marks a copy that has not been verified yet. Readers of the
// output directory never see a file under its final name until it is complete.
const partialSuffix = ".partial"

// MoveFile renames src to dst. When the two paths live on different
// filesystems the file is copied with verification and src is removed.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, unix.EXDEV) {
		return err
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// CopyFileVerified copies src next to dst under a partial name, re-reads the
// copy to compare its SHA-256 digest and size with the source, and only then
// renames it to dst. The source permissions are preserved. Nothing is left
// behind on failure.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	partial := dst + partialSuffix

	want, err := copyAndHash(src, partial, info.Mode().Perm())
	if err != nil {
		_ = os.Remove(partial)
		return err
	}
	got, size, err := hashFile(partial)
	if err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("verify copy: %w", err)
	}
	switch {
	case size != info.Size():
		_ = os.Remove(partial)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), size)
	case !bytes.Equal(want, got):
		_ = os.Remove(partial)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("finalize copy: %w", err)
	}
	return nil
}

// copyAndHash streams src into dst, syncing before close, and returns the
// digest of the bytes read from src.
func copyAndHash(src, dst string, perm os.FileMode) ([]byte, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, err
	}
	hasher := sha256.New()
	if _, err := io.Copy(out, io.TeeReader(in, hasher)); err != nil {
		_ = out.Close()
		return nil, err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, err
	}
	return hasher.Sum(nil), n, nil
}
