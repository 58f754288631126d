// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsBlob_RoutesByExtension(t *testing.T) {
	s := New(t.TempDir())

	require.False(t, s.isBlob("videos/2024/metadata.json"))
	require.False(t, s.isBlob("videos/2024/comments.json"))
	require.False(t, s.isBlob("videos/2024/video.en.vtt"))
	require.True(t, s.isBlob("videos/2024/video.mp4"))
	require.True(t, s.isBlob("videos/2024/thumbnail.jpg"))
}

func TestQueryTracking(t *testing.T) {
	s := New(t.TempDir())
	require.Equal(t, "git", s.QueryTracking("captions.tsv"))
	require.Equal(t, "annex", s.QueryTracking("video.webm"))
}

func TestIsNothingToCommit(t *testing.T) {
	require.True(t, isNothingToCommit(errNothingToCommit("nothing to commit, working tree clean")))
	require.False(t, isNothingToCommit(errNothingToCommit("fatal: bad object")))
}

type errNothingToCommit string

func (e errNothingToCommit) Error() string { return string(e) }

func TestInitRepo_WritesAttributesFromRouting(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	s.GitBinary = "true" // stub binary accepting any args, always succeeds
	s.AnnexBinary = "true"

	require.NoError(t, s.InitRepo(context.Background(), "test-archive"))

	data, err := os.ReadFile(filepath.Join(dir, ".gitattributes"))
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "*.mp4 annex.largefiles=anything")
	require.Contains(t, content, "*.json annex.largefiles=nothing")
}
