// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "time"

// Config is the fully-resolved archive configuration: defaults, overlaid
// by config.toml, overlaid by environment variables. Credentials are
// never part of this struct — see
// Credentials, which reads directly from the environment.
type Config struct {
	Sources      []SourceConfig     `koanf:"sources"`
	Components   ComponentsConfig   `koanf:"components"`
	Filters      FiltersConfig      `koanf:"filters"`
	Organization OrganizationConfig `koanf:"organization"`
	Backup       BackupConfig       `koanf:"backup"`
	Logging      LoggingConfig      `koanf:"logging"`
	Status       StatusConfig       `koanf:"status"`
}

// SourceKind is the discriminator for the kind of thing a Source points at.
type SourceKind string

const (
	SourceKindChannel   SourceKind = "channel"
	SourceKindPlaylist  SourceKind = "playlist"
	SourceKindVideoList SourceKind = "video-list"
	SourceKindAdHocURL  SourceKind = "ad-hoc-url"
)

// SourceConfig declares one remote entity to archive, with optional
// per-source overrides of the global component/filter defaults.
type SourceConfig struct {
	URL     string     `koanf:"url" validate:"required,url"`
	Type    SourceKind `koanf:"type" validate:"required,oneof=channel playlist video-list ad-hoc-url"`
	Enabled bool       `koanf:"enabled"`

	// Overrides are nil when the source doesn't override the global
	// defaults; a non-nil pointer means "use this instead".
	Components *ComponentsConfig `koanf:"components"`
	Filters    *FiltersConfig    `koanf:"filters"`
}

// ComponentsConfig selects which per-video components to fetch.
type ComponentsConfig struct {
	Videos     bool `koanf:"videos"`
	Metadata   bool `koanf:"metadata"`
	Thumbnails bool `koanf:"thumbnails"`
	Captions   bool `koanf:"captions"`
	Comments   bool `koanf:"comments"`

	// CommentsDepth bounds how many reply levels to fetch; 0 means
	// root comments only, matching the data model's one-level nesting.
	CommentsDepth int `koanf:"comments_depth" validate:"gte=0,lte=1"`

	// CaptionLanguages is a regular expression matched against BCP-47
	// language codes; empty means "all available languages".
	CaptionLanguages string `koanf:"caption_languages"`
}

// FiltersConfig is the Filter/Scope Engine's configuration. All
// fields are optional; unset fields impose no constraint. Semantics are
// AND across fields, OR within the Tags set.
type FiltersConfig struct {
	Limit int `koanf:"limit" validate:"gte=0"`

	// DateStart/DateEnd bound publication time as a half-open range:
	// start <= published < end. RFC3339 or YYYY-MM-DD.
	DateStart string `koanf:"date_start"`
	DateEnd   string `koanf:"date_end"`

	License []string `koanf:"license" validate:"dive,oneof=standard creativeCommon"`

	PlaylistInclude []string `koanf:"playlist_include"`
	PlaylistExclude []string `koanf:"playlist_exclude"`

	DurationMinSeconds *int64 `koanf:"duration_min_seconds"`
	DurationMaxSeconds *int64 `koanf:"duration_max_seconds"`

	ViewThreshold *int64 `koanf:"view_threshold"`

	Tags []string `koanf:"tags"`
}

// OrganizationConfig drives the Path Planner.
type OrganizationConfig struct {
	VideoPathTemplate string `koanf:"video_path_template" validate:"required"`
	VideoFilename     string `koanf:"video_filename"`

	SanitizeSeparator string `koanf:"sanitize_separator"`
	Lowercase         bool   `koanf:"lowercase"`
	MaxPathBytes      int    `koanf:"max_path_bytes" validate:"gt=0,lte=255"`

	PlaylistIndexWidth     int    `koanf:"playlist_index_width" validate:"gt=0"`
	PlaylistIndexSeparator string `koanf:"playlist_index_separator"`
}

// BackupConfig drives the Interrupt/Checkpoint Controller.
type BackupConfig struct {
	CheckpointInterval    int           `koanf:"checkpoint_interval" validate:"gt=0"`
	CheckpointEnabled     bool          `koanf:"checkpoint_enabled"`
	AutoCommitOnInterrupt bool          `koanf:"auto_commit_on_interrupt"`
	MaxWaitHours          float64       `koanf:"max_wait_hours" validate:"gt=0"`
	QuotaCheckInterval    time.Duration `koanf:"quota_check_interval"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StatusConfig configures the optional localhost-only status surface.
type StatusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}
