// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/quota"
	"github.com/tomtom215/ytarchive/internal/retry"
)

// fakeBackend is a scriptable Backend double for facade fallback tests.
type fakeBackend struct {
	name         string
	listFlatErr  error
	listFlatIDs  []FlatID
	detailErr    error
	detailVideos map[string]*models.Video
	commentsErr  error
	comments     []models.Comment
	thumbErr     error
	thumbURL     string
	calls        int
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error) {
	f.calls++
	return f.listFlatIDs, f.listFlatErr
}
func (f *fakeBackend) DetailBatch(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	f.calls++
	return f.detailVideos, nil, f.detailErr
}
func (f *fakeBackend) Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error) {
	f.calls++
	return f.comments, f.commentsErr
}
func (f *fakeBackend) Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error) {
	return nil, nil
}
func (f *fakeBackend) ThumbnailURL(ctx context.Context, videoID string) (string, error) {
	f.calls++
	return f.thumbURL, f.thumbErr
}

func disabledGovernor(t *testing.T) *quota.Governor {
	t.Helper()
	g, err := quota.New(quota.Config{Enabled: false}, quota.SystemClock{})
	require.NoError(t, err)
	return g
}

func TestFacade_ListFlat_FallsBackOnDataAPIFailure(t *testing.T) {
	api := &fakeBackend{name: "data-api", listFlatErr: retry.Classify(retry.NetworkTransient, errors.New("boom"))}
	ext := &fakeBackend{name: "extractor", listFlatIDs: []FlatID{{ID: "v1"}, {ID: "v2"}}}

	f := New(api, ext, disabledGovernor(t))
	entries, err := f.ListFlat(context.Background(), "https://youtube.com/channel/UC1")
	require.NoError(t, err)
	require.Equal(t, []FlatID{{ID: "v1"}, {ID: "v2"}}, entries)
	require.Equal(t, 1, api.calls)
	require.Equal(t, 1, ext.calls)
}

func TestFacade_ListFlat_NoFallbackWhenDataAPISucceeds(t *testing.T) {
	api := &fakeBackend{name: "data-api", listFlatIDs: []FlatID{{ID: "v1"}}}
	ext := &fakeBackend{name: "extractor"}

	f := New(api, ext, disabledGovernor(t))
	entries, err := f.ListFlat(context.Background(), "https://youtube.com/channel/UC1")
	require.NoError(t, err)
	require.Equal(t, []FlatID{{ID: "v1"}}, entries)
	require.Equal(t, 0, ext.calls)
}

func TestFacade_ListFlat_NilDataAPIUsesExtractorOnly(t *testing.T) {
	ext := &fakeBackend{name: "extractor", listFlatIDs: []FlatID{{ID: "v1"}}}
	f := New(nil, ext, disabledGovernor(t))
	entries, err := f.ListFlat(context.Background(), "https://youtube.com/channel/UC1")
	require.NoError(t, err)
	require.Equal(t, []FlatID{{ID: "v1"}}, entries)
}

func TestFacade_DetailBatch_FallsBackOnFailure(t *testing.T) {
	api := &fakeBackend{name: "data-api", detailErr: retry.Classify(retry.Auth, errors.New("nope"))}
	ext := &fakeBackend{name: "extractor", detailVideos: map[string]*models.Video{"v1": {VideoID: "v1"}}}

	f := New(api, ext, disabledGovernor(t))
	videos, _, err := f.DetailBatch(context.Background(), []string{"v1"})
	require.NoError(t, err)
	require.Contains(t, videos, "v1")
}

func TestFacade_DetailBatch_CachesResolvedVideos(t *testing.T) {
	api := &fakeBackend{name: "data-api", detailVideos: map[string]*models.Video{"v1": {VideoID: "v1"}}}
	ext := &fakeBackend{name: "extractor"}

	f := New(api, ext, disabledGovernor(t))

	videos, _, err := f.DetailBatch(context.Background(), []string{"v1"})
	require.NoError(t, err)
	require.Contains(t, videos, "v1")
	require.Equal(t, 1, api.calls)

	// A second request for the same id (e.g. a channel and one of its
	// own playlists both surfacing it) is served from the cache, not
	// re-fetched from the backend.
	videos, _, err = f.DetailBatch(context.Background(), []string{"v1"})
	require.NoError(t, err)
	require.Contains(t, videos, "v1")
	require.Equal(t, 1, api.calls)
}

func TestFacade_Captions_AlwaysUsesExtractor(t *testing.T) {
	api := &fakeBackend{name: "data-api"}
	ext := &fakeBackend{name: "extractor"}

	f := New(api, ext, disabledGovernor(t))
	_, err := f.Captions(context.Background(), "v1", nil)
	require.NoError(t, err)
	require.Equal(t, 0, api.calls)
}

func TestCallWithGovernor_PassesThroughImmediateSuccess(t *testing.T) {
	attempts := 0
	result, err := callWithGovernor(context.Background(), disabledGovernor(t), func() (string, error) {
		attempts++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 1, attempts)
}

func TestCallWithGovernor_DisabledGovernorSurfacesQuotaError(t *testing.T) {
	attempts := 0
	_, err := callWithGovernor(context.Background(), disabledGovernor(t), func() (string, error) {
		attempts++
		return "", quota.ErrQuotaExhausted
	})
	require.ErrorIs(t, err, quota.ErrQuotaExhausted)
	require.Equal(t, 1, attempts)
}
