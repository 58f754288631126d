// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeFileAtomic writes data to path via renameio (temp file + rename),
// creating parent directories as needed. Used for the text sidecars
// routed to the direct git tree; blob-store content is added via
// git-annex's own addurl/add, which handle their own staging.
func writeFileAtomic(path string, data []byte) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}

// ensureParentDir creates the parent directory of path if it doesn't
// already exist.
func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
