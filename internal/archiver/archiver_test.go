// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package archiver

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/enumerator"
	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/quota"
	"github.com/tomtom215/ytarchive/internal/syncstate"
)

// discardLogger returns a logger that writes nowhere, for tests exercising
// code paths that only log on already-handled error conditions.
func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeBackend is a scriptable enumerator.Backend double, local to this
// package so archiver tests can build a real *enumerator.Facade without a
// network dependency.
type fakeBackend struct {
	name      string
	videos    map[string]*models.Video
	errs      map[string]error
	batchErr  error
	batchesOf [][]string
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) ListFlat(context.Context, string) ([]enumerator.FlatID, error) { return nil, nil }
func (f *fakeBackend) DetailBatch(_ context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	f.batchesOf = append(f.batchesOf, ids)
	if f.batchErr != nil {
		return nil, nil, f.batchErr
	}
	videos := make(map[string]*models.Video, len(ids))
	errs := make(map[string]error)
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			videos[id] = v
			continue
		}
		if e, ok := f.errs[id]; ok {
			errs[id] = e
			continue
		}
	}
	return videos, errs, nil
}
func (f *fakeBackend) Comments(context.Context, string, int) ([]models.Comment, error) {
	return nil, nil
}
func (f *fakeBackend) Captions(context.Context, string, *regexp.Regexp) ([]models.Caption, error) {
	return nil, nil
}
func (f *fakeBackend) ThumbnailURL(context.Context, string) (string, error) { return "", nil }

func disabledGovernor(t *testing.T) *quota.Governor {
	t.Helper()
	g, err := quota.New(quota.Config{Enabled: false}, quota.SystemClock{})
	require.NoError(t, err)
	return g
}

func noLimitFilter(t *testing.T) *filter.Engine {
	t.Helper()
	e, err := filter.New(config.FiltersConfig{})
	require.NoError(t, err)
	return e
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 2))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunk([]string{"a", "b", "c"}, 2))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, chunk([]string{"a", "b", "c"}, 0))
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "PLxyz", sourceID("https://www.youtube.com/playlist?list=PLxyz", models.SourceKindPlaylist))
	assert.Equal(t, "UCabc", sourceID("https://www.youtube.com/channel/UCabc", models.SourceKindChannel))
	assert.Equal(t, "@somehandle", sourceID("https://www.youtube.com/@somehandle", models.SourceKindChannel))
}

func TestPlaylistMembership(t *testing.T) {
	playlist := models.Source{URL: "https://www.youtube.com/playlist?list=PL1", Kind: models.SourceKindPlaylist}
	assert.Equal(t, []string{"PL1"}, playlistMembership(playlist))

	channel := models.Source{URL: "https://www.youtube.com/channel/UC1", Kind: models.SourceKindChannel}
	assert.Nil(t, playlistMembership(channel))
}

func TestBlobMetadata(t *testing.T) {
	v := &models.Video{VideoID: "abc123", Title: "t", ChannelName: "c", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	md := blobMetadata(v, "video")
	assert.Equal(t, "abc123", md["video_id"])
	assert.Equal(t, "video", md["filetype"])
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", md["source_url"])
	assert.Equal(t, "2024-01-02T00:00:00Z", md["published"])
}

func TestResolveSource_UsesGlobalDefaultsWhenNoOverride(t *testing.T) {
	a := &Archiver{cfg: config.Config{Components: config.ComponentsConfig{Metadata: true}}}
	var err error
	a.defaultFilter, err = filter.New(config.FiltersConfig{})
	require.NoError(t, err)

	components, eng, err := a.resolveSource(config.SourceConfig{URL: "u"})
	require.NoError(t, err)
	assert.True(t, components.Metadata)
	assert.Same(t, a.defaultFilter, eng)
}

func TestResolveSource_PerSourceOverridesWin(t *testing.T) {
	a := &Archiver{cfg: config.Config{Components: config.ComponentsConfig{Metadata: true}}}
	var err error
	a.defaultFilter, err = filter.New(config.FiltersConfig{})
	require.NoError(t, err)

	overrideComponents := config.ComponentsConfig{Comments: true}
	overrideFilters := config.FiltersConfig{Limit: 5}
	components, eng, err := a.resolveSource(config.SourceConfig{
		URL:        "u",
		Components: &overrideComponents,
		Filters:    &overrideFilters,
	})
	require.NoError(t, err)
	assert.False(t, components.Metadata)
	assert.True(t, components.Comments)
	assert.Equal(t, 5, eng.Limit())
}

func TestFetchDetails_PreservesOrderFiltersAndSurfacesPerIDErrors(t *testing.T) {
	a := &Archiver{}
	v1 := &models.Video{VideoID: "v1", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	v3 := &models.Video{VideoID: "v3", PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	backend := &fakeBackend{
		name:   "data-api",
		videos: map[string]*models.Video{"v1": v1, "v3": v3},
		errs:   map[string]error{"v2": errors.New("detail fetch failed")},
	}
	facade := enumerator.New(backend, backend, disabledGovernor(t))
	a.facade = facade

	survivors, err := a.fetchDetails(context.Background(), []string{"v1", "v2", "v3"}, noLimitFilter(t), nil, discardLogger())
	require.NoError(t, err)
	require.Len(t, survivors, 2)
	assert.Equal(t, "v1", survivors[0].VideoID)
	assert.Equal(t, "v3", survivors[1].VideoID)
}

func TestFetchDetails_BatchesAtDetailBatchSize(t *testing.T) {
	a := &Archiver{}
	ids := make([]string, detailBatchSize+1)
	videos := make(map[string]*models.Video, len(ids))
	for i := range ids {
		ids[i] = "id" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		videos[ids[i]] = &models.Video{VideoID: ids[i]}
	}
	backend := &fakeBackend{name: "data-api", videos: videos}
	a.facade = enumerator.New(backend, backend, disabledGovernor(t))

	survivors, err := a.fetchDetails(context.Background(), ids, noLimitFilter(t), nil, discardLogger())
	require.NoError(t, err)
	assert.Len(t, survivors, len(ids))
	require.Len(t, backend.batchesOf, 2)
	assert.Len(t, backend.batchesOf[0], detailBatchSize)
	assert.Len(t, backend.batchesOf[1], 1)
}

func newTestSyncState(t *testing.T) *syncstate.Store {
	t.Helper()
	st, err := syncstate.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return st
}

func TestFullyArchived_NoEntryIsNotFullyArchived(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	components := config.ComponentsConfig{Metadata: true}
	assert.False(t, a.fullyArchived("src", "v1", components, time.Time{}))
}

func TestFullyArchived_AllRequestedComponentsFetchedAfterCutoff(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	fetchedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.LastFetched["metadata"] = fetchedAt
		e.LastFetched["video"] = fetchedAt
	}))

	components := config.ComponentsConfig{Metadata: true}
	assert.True(t, a.fullyArchived("src", "v1", components, time.Time{}))
	assert.True(t, a.fullyArchived("src", "v1", components, fetchedAt.Add(-time.Hour)))
	assert.False(t, a.fullyArchived("src", "v1", components, fetchedAt.Add(time.Hour)))
}

func TestFullyArchived_MissingRequestedComponentIsNotFullyArchived(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.LastFetched["metadata"] = time.Now().UTC()
		e.LastFetched["video"] = time.Now().UTC()
	}))
	components := config.ComponentsConfig{Metadata: true, Comments: true}
	assert.False(t, a.fullyArchived("src", "v1", components, time.Time{}))
}

func TestHasDelta_NoPriorEntryIsAlwaysDelta(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	v := &models.Video{VideoID: "v1", Availability: models.AvailabilityPublic}
	assert.True(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true}, discardLogger()))
}

func TestHasDelta_AvailabilityChangeIsDelta(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.Availability = string(models.AvailabilityPublic)
		e.LastFetched["metadata"] = time.Now().UTC()
		e.LastFetched["video"] = time.Now().UTC()
	}))
	v := &models.Video{VideoID: "v1", Availability: models.AvailabilityPrivate}
	assert.True(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true}, discardLogger()))
}

func TestHasDelta_NothingChangedIsNotDelta(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.Availability = string(models.AvailabilityPublic)
		e.LastFetched["metadata"] = time.Now().UTC()
		e.LastFetched["video"] = time.Now().UTC()
	}))
	v := &models.Video{VideoID: "v1", Availability: models.AvailabilityPublic}
	assert.False(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true}, discardLogger()))
}

func TestHasDelta_CommentCountIncreaseIsDeltaOnlyWhenRequested(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.Availability = string(models.AvailabilityPublic)
		e.LastFetched["metadata"] = time.Now().UTC()
		e.LastFetched["video"] = time.Now().UTC()
		e.LastFetched["comments"] = time.Now().UTC()
		e.LastCommentCount = 10
	}))
	v := &models.Video{VideoID: "v1", Availability: models.AvailabilityPublic, CommentCount: 11}

	assert.True(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true, Comments: true}, discardLogger()))
	assert.False(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true}, discardLogger()))
}

func TestHasDelta_CaptionLanguageGainIsDelta(t *testing.T) {
	a := &Archiver{syncState: newTestSyncState(t)}
	require.NoError(t, a.syncState.UpdateVideo("src", "v1", func(e *syncstate.VideoEntry) {
		e.Availability = string(models.AvailabilityPublic)
		e.LastFetched["metadata"] = time.Now().UTC()
		e.LastFetched["video"] = time.Now().UTC()
		e.LastFetched["captions"] = time.Now().UTC()
		e.CaptionLanguages = []string{"en"}
	}))
	v := &models.Video{VideoID: "v1", Availability: models.AvailabilityPublic, CaptionLanguages: []string{"en", "fr"}}

	assert.True(t, a.hasDelta("src", v, config.ComponentsConfig{Metadata: true, Captions: true}, discardLogger()))
}

func TestSourcePlaylistID(t *testing.T) {
	playlist := models.Source{URL: "https://www.youtube.com/playlist?list=PL1", Kind: models.SourceKindPlaylist}
	assert.Equal(t, "PL1", sourcePlaylistID(playlist))

	channel := models.Source{URL: "https://www.youtube.com/channel/UC1", Kind: models.SourceKindChannel}
	assert.Equal(t, "", sourcePlaylistID(channel))
}
