// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archiver implements the Archiver and Updater: the
// top-level per-source pipeline — enumerate, filter, fetch components,
// materialize, checkpoint — plus the incremental two-pass variant in
// updater.go. It is the orchestrator: every other component package is a
// leaf this one drives.
package archiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/ytarchive/internal/checkpoint"
	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/enumerator"
	"github.com/tomtom215/ytarchive/internal/export"
	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/logging"
	"github.com/tomtom215/ytarchive/internal/metrics"
	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/pathplan"
	"github.com/tomtom215/ytarchive/internal/pipeline"
	"github.com/tomtom215/ytarchive/internal/statusserver"
	"github.com/tomtom215/ytarchive/internal/store"
	"github.com/tomtom215/ytarchive/internal/syncstate"
)

// Archiver wires the components into the per-source pipeline. It holds
// no per-run state beyond its dependencies; Backup and Update may be
// called repeatedly, sequentially, for different sources. Parallel
// passes against the same archive directory are not supported.
type Archiver struct {
	dir string
	cfg config.Config

	facade     *enumerator.Facade
	syncState  *syncstate.Store
	planner    *pathplan.Planner
	store      *store.Store
	checkpoint *checkpoint.Controller
	pipeline   *pipeline.Pool
	exporter   *export.Exporter
	status     *statusserver.Server

	defaultFilter *filter.Engine
}

// New constructs an Archiver. cfg is the fully-resolved archive
// configuration; dir is the archive root, the same directory st is
// rooted at.
func New(
	dir string,
	cfg config.Config,
	facade *enumerator.Facade,
	syncState *syncstate.Store,
	planner *pathplan.Planner,
	st *store.Store,
	ckpt *checkpoint.Controller,
	pool *pipeline.Pool,
	exp *export.Exporter,
) (*Archiver, error) {
	defaultFilter, err := filter.New(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("archiver: build default filter: %w", err)
	}
	statusCfg := statusserver.Config{Enabled: cfg.Status.Enabled, Addr: cfg.Status.Addr}
	status := statusserver.New(statusCfg, func() error {
		if len(ckpt.PendingEntries()) > 0 {
			return fmt.Errorf("checkpoint: %d unconfirmed WAL entries from a prior interrupted run", len(ckpt.PendingEntries()))
		}
		return nil
	})
	return &Archiver{
		dir:           dir,
		cfg:           cfg,
		facade:        facade,
		syncState:     syncState,
		planner:       planner,
		store:         st,
		checkpoint:    ckpt,
		pipeline:      pool,
		exporter:      exp,
		status:        status,
		defaultFilter: defaultFilter,
	}, nil
}

// StartStatusServer starts the optional localhost status/metrics surface
//. A no-op, returning nil, when disabled. The
// caller — the command dispatcher — is expected to call this once per
// process, before any Backup/Update calls,
// and StopStatusServer on shutdown.
func (a *Archiver) StartStatusServer(ctx context.Context) error {
	return a.status.Start(ctx)
}

// StopStatusServer gracefully shuts down the status surface, if started.
func (a *Archiver) StopStatusServer(ctx context.Context) error {
	return a.status.Stop(ctx)
}

// resolveSource merges a source's per-source overrides over the global
// defaults; a non-nil override pointer means "use this instead".
func (a *Archiver) resolveSource(sc config.SourceConfig) (config.ComponentsConfig, *filter.Engine, error) {
	components := a.cfg.Components
	if sc.Components != nil {
		components = *sc.Components
	}
	if sc.Filters == nil {
		return components, a.defaultFilter, nil
	}
	engine, err := filter.New(*sc.Filters)
	if err != nil {
		return components, nil, fmt.Errorf("archiver: build filter for %s: %w", sc.URL, err)
	}
	return components, engine, nil
}

// BackupAll runs a full backup pass over every enabled configured
// source. A source-level failure is recorded in
// sync-state and does not abort the remaining sources.
func (a *Archiver) BackupAll(ctx context.Context) error {
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
		if err := a.Backup(ctx, source, components, filterEngine); err != nil {
			logging.Ctx(ctx).Error().Str("source", source.URL).Err(err).Msg("backup failed")
			a.recordSourceFailure(ctx, source.URL)
			continue
		}
		a.recordSourceSuccess(source.URL)
	}
	return nil
}

func (a *Archiver) hasEnabledSources() bool {
	for _, sc := range a.cfg.Sources {
		if sc.Enabled {
			return true
		}
	}
	return false
}

func (a *Archiver) recordSourceFailure(ctx context.Context, url string) {
	err := a.syncState.UpdateSource(url, func(src *syncstate.SourceState) {
		src.Status = syncstate.StatusError
		src.ConsecutiveErrors++
	})
	if err != nil {
		logging.Ctx(ctx).Error().Str("source", url).Err(err).Msg("record source failure")
	}
}

func (a *Archiver) recordSourceSuccess(url string) {
	_ = a.syncState.UpdateSource(url, func(src *syncstate.SourceState) {
		src.Status = syncstate.StatusActive
		src.ConsecutiveErrors = 0
	})
}

// Backup performs a full, non-incremental archive pass over source:
// enumerate every id, filter, fetch every requested component
// for every surviving video, checkpoint periodically, then regenerate
// the summary tables. Unlike Update, Backup never skips a video for
// being unchanged since its last fetch — every surviving id is
// (re)fetched, except an id sync-state already records under another
// source, which processVideo records only as a back-reference.
func (a *Archiver) Backup(ctx context.Context, source models.Source, components config.ComponentsConfig, filterEngine *filter.Engine) error {
	logger := logging.Ctx(ctx).With().Str("source", source.URL).Logger()
	logger.Info().Msg("backup: enumerating")

	entries, err := a.facade.ListFlat(ctx, source.URL)
	if err != nil {
		return fmt.Errorf("archiver: list-flat %s: %w", source.URL, err)
	}
	ids := flatSurvivorIDs(entries, filterEngine)

	playlistIDs := playlistMembership(source)
	survivors, err := a.fetchDetails(ctx, ids, filterEngine, playlistIDs, &logger)
	if err != nil {
		return err
	}

	return a.processSource(ctx, source, survivors, playlistIDs, components, &logger)
}

// fetchDetails resolves full metadata for ids in batches of
// detailBatchSize and applies filterEngine, preserving flat enumeration
// order. An id whose detail fetch failed is logged and dropped; every
// such id is surfaced, never silently merged into a successful result.
func (a *Archiver) fetchDetails(ctx context.Context, ids []string, filterEngine *filter.Engine, playlistIDs []string, logger *zerolog.Logger) ([]*models.Video, error) {
	videos := make(map[string]*models.Video, len(ids))
	for _, batch := range chunk(ids, detailBatchSize) {
		batchVideos, errs, err := a.facade.DetailBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("archiver: detail-batch: %w", err)
		}
		for id, v := range batchVideos {
			videos[id] = v
		}
		for id, e := range errs {
			logger.Warn().Str("video_id", id).Err(e).Msg("detail fetch failed, skipping video")
		}
	}

	survivors := make([]*models.Video, 0, len(videos))
	for _, id := range ids {
		v, ok := videos[id]
		if !ok {
			continue
		}
		if !filterEngine.Include(v, playlistIDs) {
			continue
		}
		survivors = append(survivors, v)
	}
	return survivors, nil
}

// processSource runs the per-video pipeline over survivors in
// enumeration order, checkpoints periodically, and materializes the
// source-level channel/playlist record and summary tables at the end
//.
func (a *Archiver) processSource(ctx context.Context, source models.Source, survivors []*models.Video, playlistIDs []string, components config.ComponentsConfig, logger *zerolog.Logger) error {
	total := len(survivors)
	var processed int
	for _, video := range survivors {
		if err := ctx.Err(); err != nil {
			if cerr := a.checkpoint.InterruptCommit(source.URL, processed); cerr != nil {
				logger.Error().Err(cerr).Msg("interrupt commit failed")
			}
			return err
		}

		if err := a.processVideo(ctx, source, video, components); err != nil {
			logger.Error().Str("video_id", video.VideoID).Err(err).Msg("video processing failed, continuing")
		}
		processed++
		metrics.VideosProcessedTotal.WithLabelValues(source.URL).Inc()

		if a.checkpoint.RecordVideo(source.URL) {
			if err := a.checkpoint.Checkpoint(ctx, source.URL, processed, total); err != nil {
				logger.Error().Err(err).Msg("checkpoint commit failed")
			}
		}
	}

	if err := a.materializeSource(ctx, source, survivors, playlistIDs); err != nil {
		logger.Error().Err(err).Msg("source materialization failed")
	}

	if err := a.checkpoint.SourceComplete(ctx, source.URL, total); err != nil {
		return fmt.Errorf("archiver: source-complete commit: %w", err)
	}
	if err := a.syncState.SetLastSync(source.URL, time.Now().UTC()); err != nil {
		return fmt.Errorf("archiver: set-last-sync: %w", err)
	}
	if err := a.exporter.Export(ctx); err != nil {
		return fmt.Errorf("archiver: export: %w", err)
	}
	return nil
}

// processVideo runs the per-video steps: rename
// detection, duplicate-id short-circuit, independent concurrent
// component fetches, content-store registration, and the sync-state
// update. It never returns an error for a component-level failure — those
// are logged and recorded per-component; only a failed rename move in the
// content store or a sync-state persistence failure propagates.
func (a *Archiver) processVideo(ctx context.Context, source models.Source, video *models.Video, components config.ComponentsConfig) error {
	videoID := video.VideoID

	if owner, dup := a.syncState.OwningSource(videoID, source.URL); dup {
		// Keep the record under the source that first
		// archived it; this source is recorded only as a back-reference,
		// no components are (re)fetched.
		return a.syncState.UpdateVideo(owner, videoID, func(e *syncstate.VideoEntry) {
			for _, s := range e.BackreferenceSources {
				if s == source.URL {
					return
				}
			}
			e.BackreferenceSources = append(e.BackreferenceSources, source.URL)
		})
	}

	plannedPath := a.planner.ExpectedVideoPath(video, video.ChannelName, sourcePlaylistID(source))

	existing, hadEntry := a.syncState.VideoEntrySnapshot(source.URL, videoID)
	if hadEntry && pathplan.RenameNeeded(existing.Path, plannedPath) {
		oldDir := filepath.Join(a.dir, "videos", existing.Path)
		if _, err := os.Stat(oldDir); err == nil {
			if err := a.store.Move(ctx, filepath.Join("videos", existing.Path), filepath.Join("videos", plannedPath)); err != nil {
				return fmt.Errorf("archiver: rename %s: %w", videoID, err)
			}
		}
	}

	videoDir := filepath.Join("videos", plannedPath)
	video.FilePath = videoDir
	if components.Videos {
		video.DownloadStatus = models.DownloadStatusDownloaded
	} else {
		video.DownloadStatus = models.DownloadStatusTracked
	}
	video.UpdatedAt = time.Now().UTC()
	if video.FetchedAt.IsZero() {
		video.FetchedAt = video.UpdatedAt
	}

	jobs := a.componentJobs(videoDir, video, components)
	results := a.pipeline.RunVideo(ctx, videoID, jobs)

	fetched := make(map[string]time.Time, len(results))
	for _, r := range results {
		if r.Err != nil {
			logging.Ctx(ctx).Warn().Str("video_id", videoID).Str("component", r.Name).Err(r.Err).Msg("component fetch failed")
			continue
		}
		fetched[r.Name] = time.Now().UTC()
	}

	return a.syncState.UpdateVideo(source.URL, videoID, func(e *syncstate.VideoEntry) {
		e.Availability = string(video.Availability)
		e.Path = plannedPath
		e.UpdateCount++
		for name, t := range fetched {
			e.LastFetched[name] = t
		}
		e.LastUpdatedAt = video.UpdatedAt
		e.LastViewCount = video.ViewCount
		e.LastLikeCount = video.LikeCount
		if _, ok := fetched["comments"]; ok {
			e.LastCommentCount = video.CommentCount
		}
		if _, ok := fetched["captions"]; ok {
			e.CaptionLanguages = video.CaptionLanguages
		}
	})
}

// componentJobs builds the fetch jobs requested by components for a
// single video. Metadata is always scheduled when enabled: it persists
// the already-fetched detail record, not a fresh network call, so it has
// no data dependency on the other, genuinely network-bound jobs.
func (a *Archiver) componentJobs(videoDir string, video *models.Video, components config.ComponentsConfig) []pipeline.ComponentJob {
	var jobs []pipeline.ComponentJob
	if components.Metadata {
		jobs = append(jobs, pipeline.ComponentJob{Name: "metadata", Fn: func(ctx context.Context) error {
			return a.writeMetadata(ctx, videoDir, video)
		}})
	}
	if components.Thumbnails {
		jobs = append(jobs, pipeline.ComponentJob{Name: "thumbnail", Fn: func(ctx context.Context) error {
			return a.fetchThumbnail(ctx, videoDir, video)
		}})
	}
	if components.Captions {
		jobs = append(jobs, pipeline.ComponentJob{Name: "captions", Fn: func(ctx context.Context) error {
			return a.fetchCaptions(ctx, videoDir, video, components.CaptionLanguages)
		}})
	}
	if components.Comments {
		jobs = append(jobs, pipeline.ComponentJob{Name: "comments", Fn: func(ctx context.Context) error {
			return a.fetchComments(ctx, videoDir, video, components.CommentsDepth)
		}})
	}
	jobs = append(jobs, pipeline.ComponentJob{Name: "video", Fn: func(ctx context.Context) error {
		return a.registerVideo(ctx, videoDir, video, components.Videos)
	}})
	return jobs
}

// writeMetadata persists the already-resolved video record as
// videos/<path>/metadata.json — a direct-tree text sidecar, never a blob.
func (a *Archiver) writeMetadata(ctx context.Context, videoDir string, video *models.Video) error {
	data, err := json.MarshalIndent(video, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return a.store.AddFile(ctx, filepath.Join(videoDir, "metadata.json"), data)
}

// fetchThumbnail resolves and downloads the video's thumbnail as a blob.
func (a *Archiver) fetchThumbnail(ctx context.Context, videoDir string, video *models.Video) error {
	url, err := a.facade.ThumbnailURL(ctx, video.VideoID)
	if err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	path := filepath.Join(videoDir, "thumbnail.jpg")
	if err := a.store.AddURL(ctx, path, url, store.ModeFetch); err != nil {
		return err
	}
	return a.store.SetBlobMetadata(ctx, path, blobMetadata(video, "thumbnail"))
}

// fetchCaptions resolves caption tracks matching langPattern, writes a
// placeholder sidecar per language plus the captions.json manifest the
// Exporter's writeCaptionManifests reads.
func (a *Archiver) fetchCaptions(ctx context.Context, videoDir string, video *models.Video, langPattern string) error {
	langRe, err := filter.CaptionLanguageMatcher(langPattern)
	if err != nil {
		return fmt.Errorf("caption language pattern: %w", err)
	}
	captions, err := a.facade.Captions(ctx, video.VideoID, langRe)
	if err != nil {
		return err
	}
	for i := range captions {
		captions[i].VideoID = video.VideoID
		captions[i].FilePath = fmt.Sprintf("video.%s.vtt", captions[i].LanguageCode)
		if captions[i].FetchedAt.IsZero() {
			captions[i].FetchedAt = time.Now().UTC()
		}
		sidecarPath := filepath.Join(videoDir, captions[i].FilePath)
		if err := a.store.AddFile(ctx, sidecarPath, placeholderVTT(captions[i])); err != nil {
			return fmt.Errorf("write caption sidecar %s: %w", captions[i].LanguageCode, err)
		}
	}
	manifest, err := json.Marshal(captions)
	if err != nil {
		return fmt.Errorf("marshal captions manifest: %w", err)
	}
	return a.store.AddFile(ctx, filepath.Join(videoDir, "captions.json"), manifest)
}

// fetchComments resolves the comment tree and writes comments.json —
// already nested one level by the facade's backends.
func (a *Archiver) fetchComments(ctx context.Context, videoDir string, video *models.Video, depth int) error {
	comments, err := a.facade.Comments(ctx, video.VideoID, depth)
	if err != nil {
		return err
	}
	data, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}
	return a.store.AddFile(ctx, filepath.Join(videoDir, "comments.json"), data)
}

// registerVideo registers the video's canonical URL with the content
// store in track mode by default, fetch mode when the videos component
// is enabled.
func (a *Archiver) registerVideo(ctx context.Context, videoDir string, video *models.Video, download bool) error {
	mode := store.ModeTrack
	if download {
		mode = store.ModeFetch
	}
	filename := a.cfg.Organization.VideoFilename
	if filename == "" {
		filename = "video.mp4"
	}
	path := filepath.Join(videoDir, filename)
	if err := a.store.AddURL(ctx, path, watchURL(video.VideoID), mode); err != nil {
		return err
	}
	return a.store.SetBlobMetadata(ctx, path, blobMetadata(video, "video"))
}
