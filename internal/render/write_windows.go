//go:build windows

package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFile writes data next to path then renames it over path.
// Windows has no fsync+rename guarantee, the rename is best-effort atomic.
func writeFile(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".kitt-export-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
