// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package syncstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateVideoThenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sync", "state.json")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.UpdateVideo("https://example/src", "vid1", func(v *VideoEntry) {
		v.Availability = "public"
		v.LastFetched["metadata"] = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))

	reopened, err := Open(path)
	require.NoError(t, err)

	entry, ok := reopened.VideoEntrySnapshot("https://example/src", "vid1")
	require.True(t, ok)
	require.Equal(t, "public", entry.Availability)
	require.False(t, entry.IsUnavailable())
}

func TestStore_KnownUnavailableSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.UpdateVideo("src", "v1", func(v *VideoEntry) { v.Availability = "private" }))
	require.NoError(t, s.UpdateVideo("src", "v2", func(v *VideoEntry) { v.Availability = "public" }))
	require.NoError(t, s.UpdateVideo("src", "v3", func(v *VideoEntry) { v.Availability = "removed" }))

	unavail := s.KnownUnavailableSet("src")
	require.Len(t, unavail, 2)
	require.True(t, unavail["v1"])
	require.True(t, unavail["v3"])
	require.False(t, unavail["v2"])
}

func TestStore_UnknownFieldsPreservedAcrossSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	seed := `{
		"sources": {
			"src": {
				"last_sync": "2026-01-01T00:00:00Z",
				"status": "active",
				"videos": {},
				"future_field_from_a_newer_build": "keep-me"
			}
		},
		"future_top_level_field": 42
	}`
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetLastSync("src", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Contains(t, string(m["future_top_level_field"]), "42")

	var sources map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(m["sources"], &sources))
	require.Contains(t, string(sources["src"]), "future_field_from_a_newer_build")
}

func TestStore_LastSyncZeroWhenUnknown(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	require.True(t, s.LastSync("never-seen").IsZero())
}
