// Package safeio writes output artifacts atomically. Documents are staged
// in a temp file in the destination's directory, synced, and renamed into
// place; in safe mode a symlink destination is rejected so a crafted link
// cannot redirect the write outside the output directory.
package safeio

import (
	"fmt"
	"os"
	"path/filepath"
)

const tmpPrefix = ".audioqc_tmp_"

// AtomicWriteFile writes data to path atomically.
func AtomicWriteFile(path string, data []byte, safeMode bool) error {
	parent := filepath.Dir(path)
	if parent == "" || parent == path {
		return fmt.Errorf("output path missing parent directory: %s", path)
	}

	if safeMode {
		if err := rejectSymlink(path); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(parent, tmpPrefix)
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", parent, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-ops once the rename succeeded.
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}

	// Re-check: the destination may have become a symlink while staging.
	if safeMode {
		if err := rejectSymlink(path); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomic rename to %s: %w", path, err)
	}
	return nil
}

func rejectSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return nil // absent destination is fine
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write through symlink: %s", path)
	}
	return nil
}
