// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"regexp"
	"time"

	"github.com/tomtom215/ytarchive/internal/cache"
	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/metrics"
	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/quota"
)

// detailCacheCapacity and detailCacheTTL bound the Facade's in-process
// detail cache. A run archiving a channel and one of
// its own playlists resolves every shared id's detail record once and
// reuses it the second time that id is seen, rather than re-spending a
// data-API detail-fetch call (or a slow extractor invocation) on it.
const (
	detailCacheCapacity = 20000
	detailCacheTTL      = 2 * time.Hour
)

// Facade is the Enumerator Facade: a single surface over the data
// API and extractor backends implementing the operation-by-operation
// backend-selection rule table, with automatic fallback-with-degradation
// when the data API is unavailable or exhausted.
type Facade struct {
	dataAPI   Backend // nil if not configured (no API key)
	extractor Backend
	governor  *quota.Governor
	details   *cache.IDCache
}

// New builds a Facade. dataAPI may be nil when no API key is configured,
// in which case every operation falls back to the extractor unconditionally.
func New(dataAPI, extractor Backend, governor *quota.Governor) *Facade {
	var wrappedAPI Backend
	if dataAPI != nil {
		wrappedAPI = newCircuitBreakerBackend(dataAPI, "data-api")
	}
	return &Facade{
		dataAPI:   wrappedAPI,
		extractor: newCircuitBreakerBackend(extractor, "extractor"),
		governor:  governor,
		details:   cache.NewIDCache(detailCacheCapacity, detailCacheTTL),
	}
}

// callWithGovernor runs call, and on quota exhaustion waits for the next
// reset (via the governor) and retries indefinitely until call succeeds,
// fails for a non-quota reason, or the wait is cancelled/declined — the
// Quota Governor's Do returns nil exactly when it wants the caller to
// retry, not when the call itself has succeeded, so this loop is the one
// correct place that distinction is handled.
func callWithGovernor[T any](ctx context.Context, g *quota.Governor, call func() (T, error)) (T, error) {
	for {
		result, err := call()
		if err == nil {
			return result, nil
		}
		waitErr := g.Do(ctx, func() error { return err })
		if waitErr != nil {
			return result, waitErr
		}
	}
}

// ListFlat prefers the data API (cheap, paginated, quota-priced); falls
// back to the extractor when the data API is unconfigured or fails.
func (f *Facade) ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error) {
	if f.dataAPI == nil {
		return f.extractor.ListFlat(ctx, sourceURL)
	}

	entries, err := callWithGovernor(ctx, f.governor, func() ([]FlatID, error) {
		return f.dataAPI.ListFlat(ctx, sourceURL)
	})
	if err == nil {
		return entries, nil
	}

	f.logFallback(ctx, "list-flat", err)
	metrics.EnumeratorFallbacksTotal.WithLabelValues("list-flat").Inc()
	return f.extractor.ListFlat(ctx, sourceURL)
}

type detailBatchCall struct {
	videos map[string]*models.Video
	errs   map[string]error
}

// DetailBatch prefers the data API for its richer, batched detail
// records; falls back to per-id extractor invocations on failure, which
// the caller should treat as lower-fidelity (no tags/categories
// guaranteed, duration and language coarser).
//
// Every id already resolved earlier in this run is served from the
// Facade's detail cache instead of being re-fetched; only ids the cache
// misses on reach a backend. Freshly fetched videos are recorded back
// into the cache before returning, so the next duplicate sighting of
// that id (e.g. the same video surfacing from both a channel listing
// and one of its playlists) is free.
func (f *Facade) DetailBatch(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	videos := make(map[string]*models.Video, len(ids))
	var toFetch []string
	for _, id := range ids {
		if cached, ok := f.details.Get(id); ok {
			videos[id] = cached.(*models.Video)
			continue
		}
		toFetch = append(toFetch, id)
	}
	if len(toFetch) == 0 {
		return videos, nil, nil
	}

	fetched, errs, err := f.detailBatchUncached(ctx, toFetch)
	if err != nil {
		return videos, errs, err
	}
	for id, v := range fetched {
		videos[id] = v
		f.details.Add(id, v)
	}
	return videos, errs, nil
}

// detailBatchUncached is the backend-selection/fallback logic DetailBatch
// used to run unconditionally before the detail cache existed; it is
// still the entire contract for any id the cache doesn't already hold.
func (f *Facade) detailBatchUncached(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	if f.dataAPI == nil {
		return f.extractor.DetailBatch(ctx, ids)
	}

	r, err := callWithGovernor(ctx, f.governor, func() (detailBatchCall, error) {
		videos, errs, innerErr := f.dataAPI.DetailBatch(ctx, ids)
		return detailBatchCall{videos: videos, errs: errs}, innerErr
	})
	if err == nil {
		return r.videos, r.errs, nil
	}

	f.logFallback(ctx, "detail-batch", err)
	metrics.EnumeratorFallbacksTotal.WithLabelValues("detail-batch").Inc()
	return f.extractor.DetailBatch(ctx, ids)
}

// Comments always prefers the data API: it is the only backend offering
// a reliable nested-reply structure and an accurate depth cutoff. The
// extractor fallback is best-effort and should be flagged degraded.
func (f *Facade) Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error) {
	if f.dataAPI == nil {
		return f.extractor.Comments(ctx, videoID, depth)
	}

	comments, err := callWithGovernor(ctx, f.governor, func() ([]models.Comment, error) {
		return f.dataAPI.Comments(ctx, videoID, depth)
	})
	if err == nil {
		return comments, nil
	}

	f.logFallback(ctx, "comments", err)
	metrics.EnumeratorFallbacksTotal.WithLabelValues("comments").Inc()
	return f.extractor.Comments(ctx, videoID, depth)
}

// Captions is extractor-only: the data API backend does not serve
// caption tracks in this deployment, so there is no fallback to report.
func (f *Facade) Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error) {
	return f.extractor.Captions(ctx, videoID, langFilter)
}

// ThumbnailURL prefers the data API (which resolves the URL with a
// single-id detail request of its own) and falls back to the extractor.
func (f *Facade) ThumbnailURL(ctx context.Context, videoID string) (string, error) {
	if f.dataAPI == nil {
		return f.extractor.ThumbnailURL(ctx, videoID)
	}

	url, err := callWithGovernor(ctx, f.governor, func() (string, error) {
		return f.dataAPI.ThumbnailURL(ctx, videoID)
	})
	if err == nil {
		return url, nil
	}

	f.logFallback(ctx, "thumbnail-url", err)
	metrics.EnumeratorFallbacksTotal.WithLabelValues("thumbnail-url").Inc()
	return f.extractor.ThumbnailURL(ctx, videoID)
}

func (f *Facade) logFallback(ctx context.Context, operation string, cause error) {
	logging.Ctx(ctx).Warn().
		Str("operation", operation).
		Err(cause).
		Msg("data-api unavailable, falling back to extractor (degraded)")
}
