//go:build !windows

package render

import (
	"fmt"
	"log/slog"

	"github.com/google/renameio/v2"
)

// writeFile replaces path with data atomically, a failed write leaves
// whatever was at path untouched.
func writeFile(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			slog.Debug("cleanup pending file", "path", path, "err", err)
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
