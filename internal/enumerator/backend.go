// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package enumerator implements the Enumerator Facade: the unified
// listing/detail-fetch surface over two backends — an authenticated,
// quota-bound data API and a generic, unauthenticated media extractor —
// plus the per-operation backend-selection rule table and graceful
// degrade-to-extractor fallback.
package enumerator

import (
	"context"
	"regexp"
	"time"

	"github.com/tomtom215/ytarchive/internal/models"
)

// FlatID is one entry in a cheap flat listing: an id plus whatever
// publication-date hint the backend can surface without a detail fetch.
// The flat-listing filter pass needs this to reject out-of-range
// videos before they ever reach the expensive DetailBatch call; not
// every backend can populate it, so HasPublishedAt tells the filter
// whether PublishedAt means anything.
type FlatID struct {
	ID             string
	PublishedAt    time.Time
	HasPublishedAt bool
}

// Backend is the polymorphic surface both enumerator backends satisfy.
type Backend interface {
	// ListFlat returns the ids the source currently lists, in remote
	// enumeration order — cheap, no per-item detail.
	ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error)

	// DetailBatch fetches full metadata for up to len(ids) videos.
	// Every id not present in the returned
	// map must have a corresponding entry in the errs map — no id is
	// silently dropped.
	DetailBatch(ctx context.Context, ids []string) (videos map[string]*models.Video, errs map[string]error, err error)

	// Comments fetches the comment tree for videoID, nested one level
	// (root + direct replies) when depth >= 1, root-only when depth == 0.
	Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error)

	// Captions fetches caption tracks for videoID whose language passes
	// langFilter (nil means "all available").
	Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error)

	// ThumbnailURL resolves the thumbnail URL for videoID.
	ThumbnailURL(ctx context.Context, videoID string) (string, error)

	// Name identifies the backend for logging/metrics ("data-api" or
	// "extractor").
	Name() string
}
