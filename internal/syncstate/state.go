// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package syncstate implements the Sync-State Store: the single
// durable document per archive, keyed first by source URL then by video
// id, that is the only mutable durable state the core maintains other
// than content files. Writes are atomic (temp file + rename, via
// google/renameio) on every update; reads see the last atomically written
// snapshot.
package syncstate

import (
	"time"

	"github.com/goccy/go-json"
)

// SourceStatus is the per-source state machine: active -> error on
// failure, error -> active on a successful pass, active <-> paused under
// explicit user control. There is no terminal state.
type SourceStatus string

const (
	StatusActive SourceStatus = "active"
	StatusError  SourceStatus = "error"
	StatusPaused SourceStatus = "paused"
)

// terminalAvailability mirrors models.Availability's terminal set without
// importing internal/models, keeping this package dependency-light; the
// string values are kept in lockstep by convention; no test compares
// the two sets.
const (
	availabilityPrivate     = "private"
	availabilityRemoved     = "removed"
	availabilityUnavailable = "unavailable"
)

// VideoEntry is the per-video ledger entry within a source: availability,
// last-fetched timestamps per component, and update counters.
type VideoEntry struct {
	Availability string `json:"availability"`

	// LastFetched maps component name ("metadata", "thumbnail",
	// "captions", "comments", "video") to the last time it was
	// successfully fetched.
	LastFetched map[string]time.Time `json:"last_fetched,omitempty"`

	UpdateCount int `json:"update_count"`

	// Path is the last video directory path recorded for this video,
	// relative to videos/ — the Path Planner's RenameNeeded compares its
	// freshly rendered path against this to decide whether a
	// history-preserving move is due.
	Path string `json:"path,omitempty"`

	// BackreferenceSources holds the source URLs that also reference
	// this video id besides the one that first archived it — persisted
	// here, never in models.Video.
	BackreferenceSources []string `json:"backreference_sources,omitempty"`

	// LastUpdatedAt, LastViewCount, LastLikeCount and LastCommentCount
	// mirror the detail record's own updated_at/view/like/comment fields
	// as of the last successful fetch, so a later pass can tell a genuine
	// delta apart from a video that just happens to already have
	// every component marked fetched.
	LastUpdatedAt    time.Time `json:"last_updated_at,omitempty"`
	LastViewCount    int64     `json:"last_view_count,omitempty"`
	LastLikeCount    int64     `json:"last_like_count,omitempty"`
	LastCommentCount int64     `json:"last_comment_count,omitempty"`

	// CaptionLanguages records the language codes captured the last time
	// captions were fetched, so a later pass can detect a language gain
	// instead of either skipping or refetching every language
	// unconditionally.
	CaptionLanguages []string `json:"caption_languages,omitempty"`

	// extra preserves unknown per-video fields across a load/save cycle.
	extra map[string]json.RawMessage `json:"-"`
}

// IsUnavailable reports whether the recorded availability is in the
// terminal set {private, removed, unavailable}.
func (v *VideoEntry) IsUnavailable() bool {
	switch v.Availability {
	case availabilityPrivate, availabilityRemoved, availabilityUnavailable:
		return true
	default:
		return false
	}
}

// SourceState is the per-source record.
type SourceState struct {
	LastSync          time.Time    `json:"last_sync"`
	LastVideoID       string       `json:"last_video_id"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	NextRetry         time.Time    `json:"next_retry,omitempty"`
	Status            SourceStatus `json:"status"`
	VideosTracked     int          `json:"videos_tracked"`
	VideosDownloaded  int          `json:"videos_downloaded"`

	Videos map[string]*VideoEntry `json:"videos"`

	// extra preserves unknown per-source fields across a load/save cycle.
	extra map[string]json.RawMessage `json:"-"`
}

// newSourceState returns a freshly initialized SourceState for a source
// seen for the first time.
func newSourceState() *SourceState {
	return &SourceState{
		Status: StatusActive,
		Videos: make(map[string]*VideoEntry),
	}
}

// Document is the full on-disk shape of .sync/state.json.
type Document struct {
	Sources map[string]*SourceState `json:"sources"`

	// PlaylistEntryCounts records, per playlist id, how many numbered
	// symlink entries the Archiver last wrote into playlists/<id>/ — the
	// only way to know a playlist has shrunk and stale entries need
	// removing, since the directory listing itself isn't consulted.
	PlaylistEntryCounts map[string]int `json:"playlist_entry_counts,omitempty"`

	// extra preserves unknown top-level fields across a load/save cycle,
	// so an older build never strips what a newer build wrote.
	extra map[string]json.RawMessage `json:"-"`
}

func newDocument() *Document {
	return &Document{
		Sources:             make(map[string]*SourceState),
		PlaylistEntryCounts: make(map[string]int),
	}
}
