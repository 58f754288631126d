// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/ytarchive/internal/store"
)

func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	dir := t.TempDir()
	st := store.New(dir)
	st.GitBinary = "true" // stub binary accepting any args, always succeeds
	st.AnnexBinary = "true"

	c, err := New(st, filepath.Join(dir, ".sync", "checkpoints.json"), cfg)
	require.NoError(t, err)
	return c
}

func TestRecordVideoFiresEveryInterval(t *testing.T) {
	c := newTestController(t, Config{Interval: 2, Enabled: true})

	require.False(t, c.RecordVideo("src"))
	require.True(t, c.RecordVideo("src"))
	require.False(t, c.RecordVideo("src"))
	require.True(t, c.RecordVideo("src"))
}

func TestRecordVideoDisabled(t *testing.T) {
	c := newTestController(t, Config{Interval: 1, Enabled: false})
	require.False(t, c.RecordVideo("src"))
	require.False(t, c.RecordVideo("src"))
}

func TestCheckpointConfirmsWALEntry(t *testing.T) {
	c := newTestController(t, Config{Interval: 1, Enabled: true})
	ctx := context.Background()

	require.NoError(t, c.Checkpoint(ctx, "src", 5, 10))
	require.Empty(t, c.PendingEntries())
}

func TestInterruptCommitRespectsAutoCommitFlag(t *testing.T) {
	c := newTestController(t, Config{AutoCommitOnInterrupt: false})
	require.NoError(t, c.InterruptCommit("src", 3))
	require.Empty(t, c.PendingEntries())
}
