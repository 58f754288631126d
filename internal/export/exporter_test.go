// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/ytarchive/internal/models"
)

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestExportVideosSortedByPublishDate(t *testing.T) {
	dir := t.TempDir()

	v1 := &models.Video{VideoID: "v1", Title: "First", PublishedAt: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)}
	v2 := &models.Video{VideoID: "v2", Title: "Second", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	v3 := &models.Video{VideoID: "v3", Title: "Third", PublishedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}

	writeJSON(t, filepath.Join(dir, "videos", "a", "metadata.json"), v1)
	writeJSON(t, filepath.Join(dir, "videos", "b", "metadata.json"), v2)
	writeJSON(t, filepath.Join(dir, "videos", "c", "metadata.json"), v3)

	require.NoError(t, New(dir).Export(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "videos.tsv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4) // header + 3 rows

	require.Equal(t, videosHeader, strings.Split(lines[0], "\t"))
	require.True(t, strings.HasPrefix(lines[1], "Second\t")) // Jan (earliest)
	require.True(t, strings.HasPrefix(lines[2], "Third\t"))  // Feb
	require.True(t, strings.HasPrefix(lines[3], "First\t"))  // Mar
}

func TestExportAuthorsAggregatesComments(t *testing.T) {
	dir := t.TempDir()

	comments := []models.Comment{
		{
			CommentID: "c1", AuthorName: "Alice", AuthorChannelID: "UCalice",
			PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Replies: []models.Comment{
				{CommentID: "c1r1", AuthorName: "Bob", AuthorChannelID: "UCbob",
					PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			CommentID: "c2", AuthorName: "Alice", AuthorChannelID: "UCalice",
			PublishedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	writeJSON(t, filepath.Join(dir, "videos", "a", "comments.json"), comments)

	require.NoError(t, New(dir).Export(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "authors.tsv"))
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "Alice\t2\t")
	require.Contains(t, content, "Bob\t1\t")
}

func TestExportEmptyArchiveProducesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, New(dir).Export(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "videos.tsv"))
	require.NoError(t, err)
	require.Equal(t, strings.Join(videosHeader, "\t")+"\n", string(data))
}
