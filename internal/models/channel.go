// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Channel is a remote channel, owning a list of video and playlist
// identifiers it sources. It is mutated only by enumeration — never by
// user-facing code.
type Channel struct {
	ChannelID   string `json:"channel_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Handle is the channel's custom handle (e.g. "@example"), normalized
	// to lowercase for stable comparison.
	Handle string `json:"handle,omitempty"`

	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	CreatedAt       time.Time `json:"created_at"`
	LastSyncAt      time.Time `json:"last_sync_at"`

	VideoIDs    []string `json:"video_ids"`
	PlaylistIDs []string `json:"playlist_ids"`
}

// Playlist is a remote playlist: an ordered, deduplicated list of video
// ids owned by a channel. VideoCount must always equal len(VideoIDs).
type Playlist struct {
	PlaylistID  string `json:"playlist_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelID   string `json:"channel_id"`

	// VideoIDs preserves remote ordering; this order drives the Path
	// Planner's zero-padded index when organizing a playlist directory.
	VideoIDs   []string `json:"video_ids"`
	VideoCount int      `json:"video_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VideoCountMatches reports whether the invariant video_count ==
// len(video_ids) holds for this playlist.
func (p *Playlist) VideoCountMatches() bool {
	return p.VideoCount == len(p.VideoIDs)
}
