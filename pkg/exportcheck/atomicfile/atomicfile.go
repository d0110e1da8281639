// Package atomicfile replaces files in one step so readers never observe a
// partially written file.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write replaces path with data through a temp file in the same directory
// and a rename. An existing file keeps its permission bits; a new file gets
// mode.
func Write(path string, data []byte, mode os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(step string, err error) error {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to %s %s: %w", step, path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fail("chmod", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fail("replace", err)
	}

	return nil
}
