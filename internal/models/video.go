// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// License identifies the declared license of a video.
type License string

const (
	LicenseStandard        License = "standard"
	LicenseCreativeCommons License = "creativeCommon"
)

// Privacy is the declared visibility of a video at the time it was last seen.
type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyUnlisted Privacy = "unlisted"
	PrivacyPrivate  Privacy = "private"
)

// Availability is the reachability of a video as last observed by the
// enumerator. The terminal set {private, removed, unavailable} suppresses
// further component fetch for that video — see Video.Fetchable.
type Availability string

const (
	AvailabilityPublic      Availability = "public"
	AvailabilityPrivate     Availability = "private"
	AvailabilityRemoved     Availability = "removed"
	AvailabilityUnavailable Availability = "unavailable"
)

// terminalAvailability holds the set of Availability values that suppress
// further component fetch for a video.
var terminalAvailability = map[Availability]bool{
	AvailabilityPrivate:     true,
	AvailabilityRemoved:     true,
	AvailabilityUnavailable: true,
}

// DownloadStatus tracks whether video bytes have been (successfully)
// retrieved, independent of whether the id is merely tracked.
type DownloadStatus string

const (
	DownloadStatusNotTracked DownloadStatus = "not-tracked"
	DownloadStatusTracked    DownloadStatus = "tracked"
	DownloadStatusDownloaded DownloadStatus = "downloaded"
	DownloadStatusFailed     DownloadStatus = "failed"
)

// Video is the primary per-item record of the archive. VideoID is an
// 11-character opaque string and is the primary key.
type Video struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// ChannelID/ChannelName are denormalized from Channel for fast listing;
	// ChannelName is refreshed only on the next full detail fetch of this
	// video, not on every channel rename (see archiver edge-case policy).
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`

	PublishedAt  time.Time    `json:"published_at"`
	DurationSecs int64        `json:"duration_seconds"`
	ViewCount    int64        `json:"view_count"`
	LikeCount    int64        `json:"like_count"`
	CommentCount int64        `json:"comment_count"`
	ThumbnailURL string       `json:"thumbnail_url"`
	License      License      `json:"license"`
	Privacy      Privacy      `json:"privacy"`
	Availability Availability `json:"availability"`
	Tags         []string     `json:"tags,omitempty"`
	Categories   []string     `json:"categories,omitempty"`
	Language     string       `json:"language,omitempty"`

	// CaptionLanguages is sorted and unique: the set of BCP-47 language
	// codes available for this video as of the last enumeration.
	CaptionLanguages []string `json:"caption_languages,omitempty"`

	DownloadStatus DownloadStatus `json:"download_status"`

	// FilePath is the resolved path under the content store, empty until
	// the videos component has been fetched at least once.
	FilePath string `json:"file_path,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fetchable reports whether further component fetch should be attempted
// for this video, per the terminal-availability invariant.
func (v *Video) Fetchable() bool {
	return !terminalAvailability[v.Availability]
}
