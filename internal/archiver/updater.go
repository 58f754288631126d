// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package archiver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/models"
)

// UpdateOptions carries the per-invocation flags of the `update`
// command: Force bypasses the fully-archived skip-set, and ForceDate,
// when non-zero, replaces the recorded last-sync cutoff outright
// regardless of what sync-state says, with a warning logged when it is
// older than the recorded last_sync (see DESIGN.md for the rationale).
type UpdateOptions struct {
	Force     bool
	ForceDate time.Time
}

// UpdateAll runs an incremental pass over every enabled configured
// source, with the same per-source error isolation as BackupAll.
func (a *Archiver) UpdateAll(ctx context.Context, opts UpdateOptions) error {
	if !a.hasEnabledSources() {
		return fmt.Errorf("archiver: no enabled sources configured; declare [[sources]] in config.toml or pass a URL")
	}
	for _, sc := range a.cfg.Sources {
		if !sc.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		source := models.Source{URL: sc.URL, Kind: models.SourceKind(sc.Type)}
		components, filterEngine, err := a.resolveSource(sc)
		if err != nil {
			logging.Ctx(ctx).Error().Str("source", source.URL).Err(err).Msg("resolve source config")
			a.recordSourceFailure(ctx, source.URL)
			continue
		}
		if err := a.Update(ctx, source, components, filterEngine, opts); err != nil {
			logging.Ctx(ctx).Error().Str("source", source.URL).Err(err).Msg("update failed")
			a.recordSourceFailure(ctx, source.URL)
			continue
		}
		a.recordSourceSuccess(source.URL)
	}
	return nil
}

// Update performs the two-pass incremental strategy: flat enumerate, exclude the known-unavailable set U and the
// fully-archived-with-nothing-stale set K, detail-fetch and delta-check
// the remainder, then reuse the Archiver's per-video pipeline for
// whatever each survivor's delta actually requires.
func (a *Archiver) Update(ctx context.Context, source models.Source, components config.ComponentsConfig, filterEngine *filter.Engine, opts UpdateOptions) error {
	logger := logging.Ctx(ctx).With().Str("source", source.URL).Logger()

	cutoff := a.syncState.LastSync(source.URL)
	if !opts.ForceDate.IsZero() {
		if !cutoff.IsZero() && opts.ForceDate.Before(cutoff) {
			logger.Warn().
				Time("forced_date", opts.ForceDate).
				Time("last_sync", cutoff).
				Msg("forced date is older than last recorded sync, re-processing an already-synced range")
		}
		cutoff = opts.ForceDate
	}

	logger.Info().Msg("update: enumerating")
	entries, err := a.facade.ListFlat(ctx, source.URL)
	if err != nil {
		return fmt.Errorf("archiver: list-flat %s: %w", source.URL, err)
	}
	ids := flatSurvivorIDs(entries, filterEngine)

	unavailable := a.syncState.KnownUnavailableSet(source.URL)
	candidates := make([]string, 0, len(ids))
	for _, id := range ids {
		if unavailable[id] {
			continue
		}
		if !opts.Force && a.fullyArchived(source.URL, id, components, cutoff) {
			// K: already fully archived with nothing requested stale as
			// of cutoff; still counts toward last_sync being bumped below
			// even though no detail fetch happens for it.
			continue
		}
		candidates = append(candidates, id)
	}

	playlistIDs := playlistMembership(source)
	survivors, err := a.fetchDetails(ctx, candidates, filterEngine, playlistIDs, &logger)
	if err != nil {
		return err
	}

	stale := make([]*models.Video, 0, len(survivors))
	for _, v := range survivors {
		if a.hasDelta(source.URL, v, components, &logger) {
			stale = append(stale, v)
		}
	}

	return a.processSource(ctx, source, stale, playlistIDs, components, &logger)
}

// fullyArchived reports whether videoID already has a recorded ledger
// entry covering every currently-requested component, each fetched no
// earlier than cutoff — the incremental skip-set. A cutoff
// pushed backward by --force-date re-admits videos last fetched before
// it, even if every component was otherwise recorded complete.
func (a *Archiver) fullyArchived(sourceURL, videoID string, components config.ComponentsConfig, cutoff time.Time) bool {
	entry, ok := a.syncState.VideoEntrySnapshot(sourceURL, videoID)
	if !ok {
		return false
	}
	for _, name := range requestedComponents(components) {
		fetchedAt, fetched := entry.LastFetched[name]
		if !fetched {
			return false
		}
		if !cutoff.IsZero() && fetchedAt.Before(cutoff) {
			return false
		}
	}
	return true
}

func requestedComponents(c config.ComponentsConfig) []string {
	var names []string
	if c.Metadata {
		names = append(names, "metadata")
	}
	if c.Thumbnails {
		names = append(names, "thumbnail")
	}
	if c.Captions {
		names = append(names, "captions")
	}
	if c.Comments {
		names = append(names, "comments")
	}
	names = append(names, "video")
	return names
}

// hasDelta compares the newly fetched detail record against the
// recorded ledger entry and reports whether anything actually changed.
// A video with no prior entry always has a delta (first sight). A
// missing per-component fetch record is always a delta — including a
// missing caption record, whatever the caption_languages regex would
// match (the fetch itself, fetchCaptions, still applies that regex).
// Beyond that, a video with every requested
// component already recorded as fetched is still a delta if its
// updated_at moved forward, its view/like count moved, its comment
// count grew, or it gained a caption language not in the recorded set
// (detected here, acted on by fetchCaptions re-requesting every
// configured language, since yt-dlp has no partial-caption-set mode).
func (a *Archiver) hasDelta(sourceURL string, v *models.Video, components config.ComponentsConfig, logger *zerolog.Logger) bool {
	entry, ok := a.syncState.VideoEntrySnapshot(sourceURL, v.VideoID)
	if !ok {
		return true
	}

	if entry.Availability != string(v.Availability) {
		return true
	}

	for _, name := range requestedComponents(components) {
		if _, fetched := entry.LastFetched[name]; !fetched {
			if name == "captions" {
				logger.Debug().Str("video_id", v.VideoID).Msg("caption languages not yet fetched, treating as delta")
			}
			return true
		}
	}

	if !entry.LastUpdatedAt.IsZero() && v.UpdatedAt.After(entry.LastUpdatedAt) {
		return true
	}
	if v.ViewCount != entry.LastViewCount || v.LikeCount != entry.LastLikeCount {
		return true
	}
	if components.Comments && v.CommentCount > entry.LastCommentCount {
		logger.Debug().Str("video_id", v.VideoID).
			Int64("last_comment_count", entry.LastCommentCount).
			Int64("comment_count", v.CommentCount).
			Msg("comment count increased, refetching comments")
		return true
	}
	if components.Captions && gainedCaptionLanguage(entry.CaptionLanguages, v.CaptionLanguages) {
		logger.Debug().Str("video_id", v.VideoID).Msg("caption languages gained, refetching captions")
		return true
	}

	return false
}

// gainedCaptionLanguage reports whether current contains a language code
// absent from recorded — a caption-language gain since the last fetch.
func gainedCaptionLanguage(recorded, current []string) bool {
	have := make(map[string]bool, len(recorded))
	for _, lang := range recorded {
		have[lang] = true
	}
	for _, lang := range current {
		if !have[lang] {
			return true
		}
	}
	return false
}
