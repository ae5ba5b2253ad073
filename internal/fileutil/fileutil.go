// Package fileutil holds the atomic file replacement helpers shared by the
// synthesis cache and the output writer.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempSibling returns an unused hidden path next to dst that keeps dst's
// extension, so tools that sniff the extension (ffmpeg) pick the same format.
func TempSibling(dst string) (string, error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	ext := filepath.Ext(base)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+".*.tmp"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// WriteAtomic writes dst by passing a temp file in the same directory to
// write, syncing it, and renaming it over dst. On any failure the temp file is
// removed and dst is left as it was.
func WriteAtomic(dst string, mode os.FileMode, write func(f *os.File) error) (err error) {
	tmp, err := TempSibling(dst)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return Replace(tmp, dst)
}

// Replace renames src over dst.
func Replace(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s to %s: %w", filepath.Base(src), filepath.Base(dst), err)
	}
	return nil
}

// RemoveIfExists deletes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
