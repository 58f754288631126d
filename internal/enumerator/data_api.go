// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/quota"
	"github.com/tomtom215/ytarchive/internal/retry"
)

// maxBatchIDs is the data-API backend's per-call id batching limit.
const maxBatchIDs = 50

// DataAPIBackend is the authenticated, quota-priced backend: preferred
// for channel metadata, playlist membership, detailed video attributes
// and comments. It is a plain net/http.Client-based struct satisfying
// Backend.
type DataAPIBackend struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

// NewDataAPIBackend constructs a backend talking to baseURL with apiKey.
func NewDataAPIBackend(baseURL, apiKey string) *DataAPIBackend {
	return &DataAPIBackend{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		BaseURL:    baseURL,
		APIKey:     apiKey,
	}
}

func (b *DataAPIBackend) Name() string { return "data-api" }

// get issues an authenticated GET against path with query params and
// decodes the JSON response into out.
func (b *DataAPIBackend) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	query.Set("key", b.APIKey)
	u := fmt.Sprintf("%s%s?%s", b.BaseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return retry.Classify(retry.NetworkTransient, err)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return retry.Classify(retry.NetworkTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Classify(retry.NetworkTransient, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classifyStatus maps an HTTP response's status (and, for 403, its quota
// signal) onto the retry error kinds / quota.ErrQuotaExhausted.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		if isQuotaResponse(resp) {
			return quota.ErrQuotaExhausted
		}
		return retry.Classify(retry.Auth, fmt.Errorf("data-api: 403 %s", resp.Status))
	case resp.StatusCode == http.StatusUnauthorized:
		return retry.Classify(retry.Auth, fmt.Errorf("data-api: 401 %s", resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Classify(retry.NetworkRateLimited, fmt.Errorf("data-api: 429 %s", resp.Status))
	case resp.StatusCode >= 500:
		return retry.Classify(retry.NetworkTransient, fmt.Errorf("data-api: %s", resp.Status))
	default:
		return retry.Classify(retry.NetworkTransient, fmt.Errorf("data-api: unexpected status %s", resp.Status))
	}
}

// isQuotaResponse inspects the response header the data API sets on its
// domain-specific quota-exceeded error, distinguishing it from an
// ordinary auth failure sharing the same HTTP status.
func isQuotaResponse(resp *http.Response) bool {
	return resp.Header.Get("X-Quota-Exceeded") == "true"
}

// ListFlat enumerates a source's ids via the data API's playlistItems/
// search listing, paging until exhausted. The listing's snippet already
// carries each item's publish date at no extra quota cost, so it is
// decoded here and threaded onto the returned FlatID for the filter
// engine's flat-listing pass.
func (b *DataAPIBackend) ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error) {
	var entries []FlatID
	pageToken := ""
	for {
		var page struct {
			Items []struct {
				ID      string `json:"id"`
				Snippet struct {
					PublishedAt string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		q := url.Values{"source": {sourceURL}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		if err := b.get(ctx, "/list", q, &page); err != nil {
			return entries, err
		}
		for _, item := range page.Items {
			entry := FlatID{ID: item.ID}
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				entry.PublishedAt = t
				entry.HasPublishedAt = true
			}
			entries = append(entries, entry)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return entries, nil
}

// DetailBatch fetches metadata in batches of up to maxBatchIDs, surfacing
// a per-id error for any id the API does not return — the facade never
// silently drops ids.
func (b *DataAPIBackend) DetailBatch(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	videos := make(map[string]*models.Video, len(ids))
	errs := make(map[string]error)

	for start := 0; start < len(ids); start += maxBatchIDs {
		end := start + maxBatchIDs
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var resp struct {
			Items []apiVideo `json:"items"`
		}
		q := url.Values{"id": {joinIDs(chunk)}}
		if err := b.get(ctx, "/videos", q, &resp); err != nil {
			return videos, errs, err
		}

		seen := make(map[string]bool, len(resp.Items))
		for _, item := range resp.Items {
			v := item.toVideo()
			videos[v.VideoID] = v
			seen[v.VideoID] = true
		}
		for _, id := range chunk {
			if !seen[id] {
				errs[id] = retry.Classify(retry.RemoteUnavailable, fmt.Errorf("video %s not returned by data-api batch", id))
			}
		}
	}
	return videos, errs, nil
}

// Comments fetches the comment thread for videoID, nesting replies one
// level under their root when depth >= 1.
func (b *DataAPIBackend) Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error) {
	var resp struct {
		Items []apiCommentThread `json:"items"`
	}
	q := url.Values{"videoId": {videoID}}
	if err := b.get(ctx, "/commentThreads", q, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Comment, 0, len(resp.Items))
	for _, thread := range resp.Items {
		root := thread.TopLevel.toComment(videoID)
		if depth >= 1 {
			for _, r := range thread.Replies {
				root.Replies = append(root.Replies, r.toComment(videoID))
			}
		}
		out = append(out, root)
	}
	return out, nil
}

// Captions is not implemented by the data-API backend — caption tracks
// are served by the extractor with a language filter; calling this is a
// facade bug, not a runtime condition, so it returns an error rather than
// silently degrading.
func (b *DataAPIBackend) Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error) {
	return nil, fmt.Errorf("data-api: captions are served by the extractor backend only")
}

// ThumbnailURL returns the thumbnail URL recorded on the video's own
// detail record; callers normally get this from DetailBatch already, but
// it is exposed for the Backend interface's symmetry with the extractor.
func (b *DataAPIBackend) ThumbnailURL(ctx context.Context, videoID string) (string, error) {
	videos, errs, err := b.DetailBatch(ctx, []string{videoID})
	if err != nil {
		return "", err
	}
	if e, ok := errs[videoID]; ok {
		return "", e
	}
	return videos[videoID].ThumbnailURL, nil
}

func joinIDs(ids []string) string {
	out := ids[0]
	for _, id := range ids[1:] {
		out += "," + id
	}
	return out
}
