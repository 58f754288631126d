// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pathplan implements the Path Planner: deterministic
// template rendering, sanitization, and rename detection for the on-disk
// entity layout. Same inputs always produce the same path.
package pathplan

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/models"
)

// Planner renders and sanitizes entity paths from the configured
// templates. It holds no mutable state; all methods are safe for
// concurrent use.
type Planner struct {
	cfg config.OrganizationConfig
}

// New constructs a Planner from OrganizationConfig.
func New(cfg config.OrganizationConfig) *Planner {
	return &Planner{cfg: cfg}
}

// fieldPattern matches a {field} placeholder in a path template.
var fieldPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// VideoFields is the set of substitution values available when rendering
// a video's path template.
type VideoFields struct {
	Date            string // YYYY-MM-DD of publication
	Year            string
	Month           string
	VideoID         string
	Title           string // raw, pre-sanitization
	ChannelID       string
	ChannelName     string
	PlaylistID      string // empty unless the video was discovered via a playlist source
}

// VideoPath renders, sanitizes and truncates the configured
// video_path_template for f, returning a path relative to videos/.
func (p *Planner) VideoPath(f VideoFields) string {
	sanitizedTitle := p.Sanitize(f.Title)
	rendered := fieldPattern.ReplaceAllStringFunc(p.cfg.VideoPathTemplate, func(field string) string {
		switch field {
		case "{date}":
			return f.Date
		case "{year}":
			return f.Year
		case "{month}":
			return f.Month
		case "{video_id}":
			return f.VideoID
		case "{sanitized_title}":
			return sanitizedTitle
		case "{channel_id}":
			return p.Sanitize(f.ChannelID)
		case "{channel_name}":
			return p.Sanitize(f.ChannelName)
		case "{playlist_id}":
			// Empty for non-playlist sources; render nothing rather than
			// letting Sanitize's empty-input fallback inject "untitled".
			if f.PlaylistID == "" {
				return ""
			}
			return p.Sanitize(f.PlaylistID)
		default:
			return field
		}
	})
	return p.truncatePath(rendered)
}

// PlaylistEntryName renders the fixed-width, zero-padded index name for
// position idx (0-based) of a video within a playlist directory, e.g.
// "0001_my-video-slug" with the configured width/separator.
func (p *Planner) PlaylistEntryName(idx int, videoSlug string) string {
	width := p.cfg.PlaylistIndexWidth
	if width <= 0 {
		width = 4
	}
	sep := p.cfg.PlaylistIndexSeparator
	if sep == "" {
		sep = "_"
	}
	return fmt.Sprintf("%0*d%s%s", width, idx+1, sep, videoSlug)
}

// Sanitize normalizes title to NFC, collapses internal whitespace to the
// configured separator, strips filesystem-reserved characters, and
// optionally lowercases.
func (p *Planner) Sanitize(title string) string {
	normalized := norm.NFC.String(title)

	sep := p.cfg.SanitizeSeparator
	if sep == "" {
		sep = "-"
	}

	var b strings.Builder
	lastWasSpace := false
	for _, r := range normalized {
		switch {
		case isReserved(r):
			// drop entirely
			continue
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastWasSpace {
				b.WriteString(sep)
				lastWasSpace = true
			}
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}

	out := strings.Trim(b.String(), sep)
	if p.cfg.Lowercase {
		out = strings.ToLower(out)
	}
	if out == "" {
		out = "untitled"
	}
	return out
}

// reservedChars are filesystem-reserved across the supported platforms
// (NTFS/exFAT/ext4 common-denominator set).
const reservedChars = `<>:"/\|?*`

func isReserved(r rune) bool {
	return strings.ContainsRune(reservedChars, r) || r < 0x20
}

// truncatePath trims path components so the whole path stays under the
// configured MaxPathBytes (default 255) on any supported filesystem. It
// truncates the final (deepest) component first, since that is where
// titles inflate path length.
func (p *Planner) truncatePath(path string) string {
	max := p.cfg.MaxPathBytes
	if max <= 0 {
		max = 255
	}
	if len(path) <= max {
		return path
	}
	dir, base := filepath.Split(path)
	overflow := len(path) - max
	if overflow >= len(base) {
		// Degenerate: even dropping the whole base isn't enough; give the
		// caller back whatever fits rather than panic on a negative slice.
		if len(dir) > max {
			return dir[:max]
		}
		return dir
	}
	base = base[:len(base)-overflow]
	return dir + base
}

// RenameNeeded reports whether the recorded path for a video differs from
// its currently-planned path — the Archiver schedules a history-preserving
// move when this is true and the old path exists on disk.
func RenameNeeded(recordedPath, plannedPath string) bool {
	return recordedPath != "" && recordedPath != plannedPath
}

// ExpectedVideoPath is a convenience wrapper deriving VideoFields from a
// models.Video, then rendering the path. playlistID is empty for videos
// discovered from non-playlist sources; with the default template it is
// unused, but an operator template naming {playlist_id} groups a
// playlist source's videos under its id.
func (p *Planner) ExpectedVideoPath(v *models.Video, channelName, playlistID string) string {
	return p.VideoPath(VideoFields{
		Date:        v.PublishedAt.Format("2006-01-02"),
		Year:        v.PublishedAt.Format("2006"),
		Month:       v.PublishedAt.Format("01"),
		VideoID:     v.VideoID,
		Title:       v.Title,
		ChannelID:   v.ChannelID,
		ChannelName: channelName,
		PlaylistID:  playlistID,
	})
}
