// Package infra implements infrastructure concerns (config, hosts file,
// session state, process probes).
package infra

import (
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path without ever exposing a half-written
// destination: write to a temp file in the same directory, sync, then
// rename over the destination. On rename failure (e.g. the destination is
// busy on some filesystems) it falls back to remove-then-rename. On any
// failure the temp file is deleted and the old destination is untouched.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".focusguard-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	if err = os.Rename(tmpPath, path); err != nil {
		// Fall back to delete-then-move.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return err
		}
		if err = os.Rename(tmpPath, path); err != nil {
			return err
		}
	}

	success = true
	return nil
}

// copyFile copies src to dst using the same temp-file + rename pattern so
// a failed backup never leaves a truncated copy behind.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	info, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(sourceFile)
	if err != nil {
		return err
	}
	return AtomicWriteFile(dst, data, info.Mode().Perm())
}
