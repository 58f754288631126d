// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/models"
)

// Exporter regenerates the on-disk summary tables by reading the
// per-entity JSON records already materialized under Dir — the
// canonical source — never sync-state.
type Exporter struct {
	Dir string
}

// New constructs an Exporter rooted at the archive directory dir.
func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// videosHeader, playlistsHeader, authorsHeader and captionsHeader are
// the fixed, documented column orders: title first, id last.
var (
	videosHeader = []string{
		"title", "channel_name", "channel_id", "published_at",
		"duration_seconds", "view_count", "like_count", "comment_count",
		"license", "privacy", "availability", "tags", "categories",
		"language", "caption_languages", "download_status", "file_path",
		"video_id",
	}
	playlistsHeader = []string{
		"title", "channel_id", "video_count", "created_at", "updated_at",
		"playlist_id",
	}
	authorsHeader = []string{
		"author_name", "comment_count", "last_comment_at",
		"author_channel_id",
	}
	captionsHeader = []string{
		"language_name", "auto_generated", "format", "file_path",
		"fetched_at", "language_code",
	}
)

// Export regenerates every summary table: videos.tsv, playlists.tsv,
// authors.tsv, and a per-video captions.tsv manifest.
func (e *Exporter) Export(ctx context.Context) error {
	videos, err := e.loadVideos()
	if err != nil {
		return fmt.Errorf("export: load videos: %w", err)
	}
	if err := e.writeVideos(videos); err != nil {
		return fmt.Errorf("export: videos.tsv: %w", err)
	}

	playlists, err := e.loadPlaylists()
	if err != nil {
		return fmt.Errorf("export: load playlists: %w", err)
	}
	if err := e.writePlaylists(playlists); err != nil {
		return fmt.Errorf("export: playlists.tsv: %w", err)
	}

	if err := e.writeAuthors(); err != nil {
		return fmt.Errorf("export: authors.tsv: %w", err)
	}

	if err := e.writeCaptionManifests(); err != nil {
		return fmt.Errorf("export: captions manifests: %w", err)
	}

	logging.Ctx(ctx).Info().
		Int("videos", len(videos)).
		Int("playlists", len(playlists)).
		Msg("export regenerated summary tables")
	return nil
}

// loadVideos walks videos/ reading every metadata.json into a
// models.Video.
func (e *Exporter) loadVideos() ([]*models.Video, error) {
	var out []*models.Video
	root := filepath.Join(e.Dir, "videos")
	err := walkMetadata(root, func(data []byte) error {
		var v models.Video
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		out = append(out, &v)
		return nil
	})
	return out, err
}

// loadPlaylists walks playlists/ reading every metadata.json into a
// models.Playlist.
func (e *Exporter) loadPlaylists() ([]*models.Playlist, error) {
	var out []*models.Playlist
	root := filepath.Join(e.Dir, "playlists")
	err := walkMetadata(root, func(data []byte) error {
		var p models.Playlist
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// walkMetadata visits every metadata.json below root and invokes fn
// with its contents. A missing root directory is not an error — a
// fresh archive may not have any entities of that kind yet.
func walkMetadata(root string, fn func([]byte) error) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "metadata.json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		return fn(data)
	})
}

// writeVideos writes videos.tsv sorted by publication date ascending,
// then video id for ties, so regeneration is deterministic.
func (e *Exporter) writeVideos(videos []*models.Video) error {
	sort.Slice(videos, func(i, j int) bool {
		if !videos[i].PublishedAt.Equal(videos[j].PublishedAt) {
			return videos[i].PublishedAt.Before(videos[j].PublishedAt)
		}
		return videos[i].VideoID < videos[j].VideoID
	})

	var b strings.Builder
	writeRow(&b, videosHeader...)
	for _, v := range videos {
		writeRow(&b,
			v.Title,
			v.ChannelName,
			v.ChannelID,
			v.PublishedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(v.DurationSecs, 10),
			strconv.FormatInt(v.ViewCount, 10),
			strconv.FormatInt(v.LikeCount, 10),
			strconv.FormatInt(v.CommentCount, 10),
			string(v.License),
			string(v.Privacy),
			string(v.Availability),
			strings.Join(v.Tags, ","),
			strings.Join(v.Categories, ","),
			v.Language,
			strings.Join(v.CaptionLanguages, ","),
			string(v.DownloadStatus),
			v.FilePath,
			v.VideoID,
		)
	}
	return writeAtomic(filepath.Join(e.Dir, "videos.tsv"), b.String())
}

// writePlaylists writes playlists.tsv sorted by title, then id.
func (e *Exporter) writePlaylists(playlists []*models.Playlist) error {
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].Title != playlists[j].Title {
			return playlists[i].Title < playlists[j].Title
		}
		return playlists[i].PlaylistID < playlists[j].PlaylistID
	})

	var b strings.Builder
	writeRow(&b, playlistsHeader...)
	for _, p := range playlists {
		writeRow(&b,
			p.Title,
			p.ChannelID,
			strconv.Itoa(p.VideoCount),
			p.CreatedAt.UTC().Format(time.RFC3339),
			p.UpdatedAt.UTC().Format(time.RFC3339),
			p.PlaylistID,
		)
	}
	return writeAtomic(filepath.Join(e.Dir, "playlists.tsv"), b.String())
}

// authorAgg accumulates per-commenter statistics while walking every
// video's comments.json.
type authorAgg struct {
	name    string
	count   int64
	lastAt  time.Time
}

// writeAuthors aggregates commenters across every video's comments.json
// into authors.tsv.
func (e *Exporter) writeAuthors() error {
	agg := map[string]*authorAgg{}
	root := filepath.Join(e.Dir, "videos")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return writeAtomic(filepath.Join(e.Dir, "authors.tsv"), headerOnly(authorsHeader))
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != "comments.json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var comments []models.Comment
		if err := json.Unmarshal(data, &comments); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		accumulateComments(agg, comments)
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	writeRow(&b, authorsHeader...)
	for _, k := range keys {
		a := agg[k]
		writeRow(&b,
			a.name,
			strconv.FormatInt(a.count, 10),
			a.lastAt.UTC().Format(time.RFC3339),
			k,
		)
	}
	return writeAtomic(filepath.Join(e.Dir, "authors.tsv"), b.String())
}

// accumulateComments flattens root comments plus their one level of
// nested replies into the aggregation map, keyed by author channel id.
func accumulateComments(agg map[string]*authorAgg, comments []models.Comment) {
	for _, c := range comments {
		addAuthor(agg, c)
		for _, r := range c.Replies {
			addAuthor(agg, r)
		}
	}
}

func addAuthor(agg map[string]*authorAgg, c models.Comment) {
	key := c.AuthorChannelID
	if key == "" {
		key = "unknown:" + hex.EncodeToString([]byte(c.AuthorName))
	}
	a, ok := agg[key]
	if !ok {
		a = &authorAgg{name: c.AuthorName}
		agg[key] = a
	}
	a.count++
	if c.PublishedAt.After(a.lastAt) {
		a.lastAt = c.PublishedAt
	}
}

// writeCaptionManifests regenerates a captions.tsv manifest inside
// every video directory that has a captions.json sidecar (written by
// the Archiver when the captions component was fetched).
func (e *Exporter) writeCaptionManifests() error {
	root := filepath.Join(e.Dir, "videos")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "captions.json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var captions []models.Caption
		if err := json.Unmarshal(data, &captions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		sort.Slice(captions, func(i, j int) bool {
			return captions[i].LanguageCode < captions[j].LanguageCode
		})

		var b strings.Builder
		writeRow(&b, captionsHeader...)
		for _, c := range captions {
			writeRow(&b,
				c.LanguageName,
				strconv.FormatBool(c.AutoGenerated),
				c.Format,
				c.FilePath,
				c.FetchedAt.UTC().Format(time.RFC3339),
				c.LanguageCode,
			)
		}
		dir := filepath.Dir(path)
		return writeAtomic(filepath.Join(dir, "captions.tsv"), b.String())
	})
}

func headerOnly(header []string) string {
	var b strings.Builder
	writeRow(&b, header...)
	return b.String()
}

// writeAtomic writes content to path via renameio (temp file + rename)
// so a regeneration mid-write never leaves a truncated table on disk.
func writeAtomic(path, content string) error {
	return renameio.WriteFile(path, []byte(content), 0o644)
}
