// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package archiver

import (
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/ytarchive/internal/enumerator"
	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/models"
)

// detailBatchSize is the data-API backend's documented per-call
// batching cap.
const detailBatchSize = 50

// chunk splits ids into groups of at most size, preserving order.
func chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		if len(ids) == 0 {
			return nil
		}
		size = len(ids)
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n:n])
		ids = ids[n:]
	}
	return out
}

// sourceID extracts a stable identifier for a source URL from its kind —
// the playlist "list" query parameter, the channel path segment, or the
// handle — used as the directory name under playlists/ or channels/ and
// as the playlist-membership token the Filter/Scope Engine matches
// against playlist_include/playlist_exclude.
func sourceID(rawURL string, kind models.SourceKind) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	switch kind {
	case models.SourceKindPlaylist:
		if id := u.Query().Get("list"); id != "" {
			return id
		}
	case models.SourceKindChannel:
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && (parts[0] == "channel" || parts[0] == "c" || parts[0] == "user") {
			return parts[1]
		}
		if len(parts) == 1 && strings.HasPrefix(parts[0], "@") {
			return parts[0]
		}
	}
	return strings.Trim(u.Path, "/")
}

// sourcePlaylistID returns the playlist id for a playlist-kind source,
// "" otherwise — the {playlist_id} field the Path Planner substitutes
// when rendering a video's path.
func sourcePlaylistID(source models.Source) string {
	if source.Kind != models.SourceKindPlaylist {
		return ""
	}
	return sourceID(source.URL, source.Kind)
}

// playlistMembership returns the playlist-id tokens a video discovered
// from source belongs to, for the Filter/Scope Engine's
// playlist_include/playlist_exclude check. Only playlist-kind sources
// carry membership information in this deployment — the enumerator
// facade has no separate "which playlists contain this id" query.
func playlistMembership(source models.Source) []string {
	if id := sourcePlaylistID(source); id != "" {
		return []string{id}
	}
	return nil
}

// watchURL renders the canonical watch-page URL for a video id. The
// content store registers this URL rather than a resolved direct media
// URL — resolving the actual media stream is the extractor binary's job
// at fetch time, which the adapter shells out to, not something this
// layer pre-computes.
func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// flatSurvivorIDs applies the flat-listing filter pass to entries —
// filters that can be evaluated from a flat listing (id, date if
// available) run before any detail fetch — dropping any id whose publish date the
// listing already carries and which falls outside a configured date
// range, before the caller ever spends a detail-fetch call on it. The
// configured result-count limit is applied after this pass, matching
// the order a real run would want: don't let an out-of-range video
// consume a limit slot a qualifying one needed. Order is preserved.
func flatSurvivorIDs(entries []enumerator.FlatID, filterEngine *filter.Engine) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !filterEngine.IncludeFlat(e.PublishedAt, e.HasPublishedAt) {
			continue
		}
		ids = append(ids, e.ID)
	}
	if limit := filterEngine.Limit(); limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// blobMetadata builds the annex metadata key/value set for one of a
// video's blob-store files.
func blobMetadata(v *models.Video, filetype string) map[string]string {
	return map[string]string{
		"video_id":   v.VideoID,
		"title":      v.Title,
		"channel":    v.ChannelName,
		"published":  v.PublishedAt.UTC().Format(time.RFC3339),
		"source_url": watchURL(v.VideoID),
		"filetype":   filetype,
	}
}
