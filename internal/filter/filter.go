// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filter implements the Filter/Scope Engine: a pure,
// I/O-free function deciding whether a video should be included in an
// archive run, given the resolved FiltersConfig. Nothing here performs
// network calls or logging — it is exhaustively table-test friendly.
package filter

import (
	"regexp"
	"time"

	"github.com/tomtom215/ytarchive/internal/cache"
	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/models"
)

// Engine evaluates FiltersConfig against videos. It is safe for
// concurrent use: all state is read-only after construction.
type Engine struct {
	cfg config.FiltersConfig

	license  map[models.License]bool
	include  set
	exclude  set
	tags     map[string]bool
	dateStart, dateEnd time.Time
	hasDateRange bool
}

// set wraps a bloom-filtered exact set for playlist membership checks:
// the bloom filter pre-screens when the set exceeds a size threshold,
// falling back to exact membership below it. A bloom hit is always
// confirmed against the exact map before deciding
// exclusion, since bloom filters never produce false negatives but can
// produce false positives.
type set struct {
	exact map[string]bool
	bloom *cache.BloomFilter
}

// bloomThreshold is the playlist-set size above which the bloom
// pre-screen is used ahead of the exact map lookup.
const bloomThreshold = 256

func newSet(ids []string) set {
	exact := make(map[string]bool, len(ids))
	for _, id := range ids {
		exact[id] = true
	}
	s := set{exact: exact}
	if len(ids) > bloomThreshold {
		bf := cache.NewBloomFilter(len(ids), 0.01)
		for _, id := range ids {
			bf.Add(id)
		}
		s.bloom = bf
	}
	return s
}

// contains reports whether id is a member. The bloom filter, when
// present, only ever short-circuits a negative result (bloom says "maybe
// not there" and it never lies about absence); a bloom "maybe" always
// falls through to the exact check.
func (s set) contains(id string) bool {
	if s.bloom != nil && !s.bloom.Test(id) {
		return false
	}
	return s.exact[id]
}

func (s set) empty() bool { return len(s.exact) == 0 }

// New builds an Engine from a resolved FiltersConfig. cfg is assumed
// already validated (internal/config.Validate).
func New(cfg config.FiltersConfig) (*Engine, error) {
	e := &Engine{cfg: cfg}

	for _, l := range cfg.License {
		if e.license == nil {
			e.license = map[models.License]bool{}
		}
		e.license[models.License(l)] = true
	}

	e.include = newSet(cfg.PlaylistInclude)
	e.exclude = newSet(cfg.PlaylistExclude)

	if len(cfg.Tags) > 0 {
		e.tags = make(map[string]bool, len(cfg.Tags))
		for _, tag := range cfg.Tags {
			e.tags[tag] = true
		}
	}

	if cfg.DateStart != "" {
		t, err := parseDate(cfg.DateStart)
		if err != nil {
			return nil, err
		}
		e.dateStart = t
		e.hasDateRange = true
	}
	if cfg.DateEnd != "" {
		t, err := parseDate(cfg.DateEnd)
		if err != nil {
			return nil, err
		}
		e.dateEnd = t
		e.hasDateRange = true
	}

	return e, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Include reports whether video passes every configured filter. All
// configured fields apply with AND semantics; Tags applies with OR
// semantics within the set.
func (e *Engine) Include(video *models.Video, playlistIDs []string) bool {
	if e.hasDateRange && !e.dateInRange(video.PublishedAt) {
		return false
	}
	if e.license != nil && !e.license[video.License] {
		return false
	}
	if !e.include.empty() && !e.anyMember(e.include, playlistIDs) {
		return false
	}
	if !e.exclude.empty() && e.anyMember(e.exclude, playlistIDs) {
		return false
	}
	if e.cfg.DurationMinSeconds != nil && video.DurationSecs < *e.cfg.DurationMinSeconds {
		return false
	}
	if e.cfg.DurationMaxSeconds != nil && video.DurationSecs > *e.cfg.DurationMaxSeconds {
		return false
	}
	if e.cfg.ViewThreshold != nil && video.ViewCount < *e.cfg.ViewThreshold {
		return false
	}
	if e.tags != nil && !e.anyTag(video.Tags) {
		return false
	}
	return true
}

// Limit returns the configured result-count limit (0 means unlimited),
// exposed so the Archiver can truncate a flat listing before the more
// expensive detail-batch fetch.
func (e *Engine) Limit() int {
	return e.cfg.Limit
}

// IncludeFlat evaluates only the filters that can be decided from a
// flat listing (id and, when available, publication date). A video
// that fails IncludeFlat is never fetched in detail.
func (e *Engine) IncludeFlat(publishedAt time.Time, hasPublishedAt bool) bool {
	if e.hasDateRange && hasPublishedAt && !e.dateInRange(publishedAt) {
		return false
	}
	return true
}

// dateInRange applies the half-open range start <= published < end.
func (e *Engine) dateInRange(published time.Time) bool {
	if !e.dateStart.IsZero() && published.Before(e.dateStart) {
		return false
	}
	if !e.dateEnd.IsZero() && !published.Before(e.dateEnd) {
		return false
	}
	return true
}

func (e *Engine) anyMember(s set, ids []string) bool {
	for _, id := range ids {
		if s.contains(id) {
			return true
		}
	}
	return false
}

func (e *Engine) anyTag(tags []string) bool {
	for _, t := range tags {
		if e.tags[t] {
			return true
		}
	}
	return false
}

// CaptionLanguageMatcher compiles the caption_languages regex, returning
// a matcher that accepts everything when the pattern is empty.
func CaptionLanguageMatcher(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// MatchesLanguage reports whether lang passes re, treating a nil re
// (empty configured pattern) as "match everything".
func MatchesLanguage(re *regexp.Regexp, lang string) bool {
	if re == nil {
		return true
	}
	return re.MatchString(lang)
}
