// Package fileutil holds the file helpers used to publish artifacts without
// ever exposing a partially written file at its final path.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrExists reports that a publish target is already present.
var ErrExists = errors.New("destination already exists")

// TempPath returns a unique hidden path next to dst for staging its contents.
func TempPath(dst string) string {
	dir, base := filepath.Split(dst)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}

// Publish moves tmp to dst. Without overwrite an existing dst is left alone
// and ErrExists is returned. When tmp and dst live on different filesystems
// the file is copied with verification and tmp is removed.
func Publish(tmp, dst string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("publish %s: %w", dst, ErrExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat destination: %w", err)
		}
	}
	err := os.Rename(tmp, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	staged := TempPath(dst)
	if err := CopyFileVerified(tmp, staged); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("copy across filesystems: %w", err)
	}
	if err := os.Rename(staged, dst); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	return os.Remove(tmp)
}

// WriteFileAtomic streams write's output to a temporary sibling of path and
// publishes it on success. On any failure nothing appears at path.
func WriteFileAtomic(path string, overwrite bool, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := TempPath(path)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err = write(out); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return Publish(tmp, path, overwrite)
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
