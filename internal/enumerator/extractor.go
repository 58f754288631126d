// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/models"
	"github.com/tomtom215/ytarchive/internal/retry"
)

// ExtractorBackend drives an external generic media extractor (a yt-dlp-
// compatible binary) via os/exec. It requires no credentials and is never quota
// bound, at the cost of incomplete coverage (best-effort comments, coarser detail)
// relative to the data API.
type ExtractorBackend struct {
	Binary    string
	Limiter   *rate.Limiter
	Timeout   time.Duration
	ExtraArgs []string
}

// NewExtractorBackend constructs a backend invoking binary (normally
// "yt-dlp"), rate limited to at most rps invocations per second with a
// burst of burst. The token bucket shapes outbound call cadence so the
// remote host's own throttling never triggers.
func NewExtractorBackend(binary string, rps float64, burst int) *ExtractorBackend {
	return &ExtractorBackend{
		Binary:  binary,
		Limiter: rate.NewLimiter(rate.Limit(rps), burst),
		Timeout: 120 * time.Second,
	}
}

func (e *ExtractorBackend) Name() string { return "extractor" }

// flatEntry is the extractor's --flat-playlist --dump-json record shape,
// one JSON object per line.
type flatEntry struct {
	ID string `json:"id"`
}

// ListFlat invokes the extractor in flat-playlist mode, reading one JSON
// object per line from stdout without per-video detail resolution.
// --flat-playlist never resolves a per-item upload date (that requires
// the full per-video extraction this mode exists to avoid), so every
// returned FlatID carries HasPublishedAt=false — the facade's flat-stage
// filter degrades to id-only screening on this backend.
func (e *ExtractorBackend) ListFlat(ctx context.Context, sourceURL string) ([]FlatID, error) {
	args := e.baseArgs("--flat-playlist", "--dump-json", sourceURL)
	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var entries []FlatID
	for _, line := range splitNonEmptyLines(out) {
		var entry flatEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.ID != "" {
			entries = append(entries, FlatID{ID: entry.ID})
		}
	}
	return entries, nil
}

// extractorVideo is the extractor's single-video --dump-json record shape,
// a subset of the (much larger) real yt-dlp info dict.
type extractorVideo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelID    string   `json:"channel_id"`
	Channel      string   `json:"channel"`
	UploadDate   string   `json:"upload_date"` // YYYYMMDD
	Duration     float64  `json:"duration"`
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	Thumbnail    string   `json:"thumbnail"`
	License      string   `json:"license"`
	Availability string   `json:"availability"` // "public", "private", "needs_auth", etc.
	Tags         []string `json:"tags"`
	Categories   []string `json:"categories"`
	Language     string   `json:"language"`
	Subtitles    []string `json:"subtitle_languages"`
}

func (v *extractorVideo) toVideo() *models.Video {
	var published time.Time
	if t, err := time.Parse("20060102", v.UploadDate); err == nil {
		published = t
	}
	return &models.Video{
		VideoID:          v.ID,
		Title:            v.Title,
		Description:      v.Description,
		ChannelID:        v.ChannelID,
		ChannelName:      v.Channel,
		PublishedAt:      published,
		DurationSecs:     int64(v.Duration),
		ViewCount:        v.ViewCount,
		LikeCount:        v.LikeCount,
		CommentCount:     v.CommentCount,
		ThumbnailURL:     v.Thumbnail,
		License:          models.License(v.License),
		Availability:     extractorAvailability(v.Availability),
		Tags:             v.Tags,
		Categories:       v.Categories,
		Language:         v.Language,
		CaptionLanguages: sortedUnique(v.Subtitles),
		FetchedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func extractorAvailability(a string) models.Availability {
	switch a {
	case "public", "unlisted":
		return models.AvailabilityPublic
	case "private", "needs_auth", "premium_only", "subscriber_only":
		return models.AvailabilityPrivate
	default:
		return models.AvailabilityUnavailable
	}
}

// DetailBatch resolves each id's metadata with a separate invocation: the
// extractor binary has no native multi-id batch mode, so batching here is
// purely a caller-facing contract, not a performance characteristic.
func (e *ExtractorBackend) DetailBatch(ctx context.Context, ids []string) (map[string]*models.Video, map[string]error, error) {
	videos := make(map[string]*models.Video, len(ids))
	errs := make(map[string]error)

	for _, id := range ids {
		out, err := e.run(ctx, e.baseArgs("--dump-json", "--no-playlist", videoURL(id))...)
		if err != nil {
			errs[id] = err
			continue
		}
		var v extractorVideo
		if err := json.Unmarshal(out, &v); err != nil {
			errs[id] = retry.Classify(retry.ExtractorIncompatible, fmt.Errorf("extractor: parse %s: %w", id, err))
			continue
		}
		videos[id] = v.toVideo()
	}
	return videos, errs, nil
}

// Comments is a best-effort facility: the extractor can dump comments for
// supporting sites, but depth control is coarser than the data API's (an
// approximate cap on total comments, not a strict reply-nesting depth).
func (e *ExtractorBackend) Comments(ctx context.Context, videoID string, depth int) ([]models.Comment, error) {
	args := e.baseArgs("--skip-download", "--write-comments", "--dump-json", videoURL(videoID))
	if depth == 0 {
		args = append(args, "--extractor-args", "youtube:max_comments=0")
	}
	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Comments []struct {
			ID          string `json:"id"`
			Author      string `json:"author"`
			AuthorID    string `json:"author_id"`
			Text        string `json:"text"`
			Timestamp   int64  `json:"timestamp"`
			LikeCount   int64  `json:"like_count"`
			Parent      string `json:"parent"`
			IsFavorited bool   `json:"is_favorited"`
		} `json:"comments"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, retry.Classify(retry.ExtractorIncompatible, fmt.Errorf("extractor: parse comments %s: %w", videoID, err))
	}

	out2 := make([]models.Comment, 0, len(payload.Comments))
	rootIdx := make(map[string]int)
	for _, c := range payload.Comments {
		parent := c.Parent
		if parent == "root" {
			parent = ""
		}
		comment := models.Comment{
			CommentID:       c.ID,
			VideoID:         videoID,
			AuthorName:      c.Author,
			AuthorChannelID: c.AuthorID,
			Text:            c.Text,
			PublishedAt:     time.Unix(c.Timestamp, 0).UTC(),
			LikeCount:       c.LikeCount,
			ParentCommentID: parent,
		}
		// Nest a reply under its root; a reply whose root is not in the
		// dump stays at the top level.
		if i, ok := rootIdx[parent]; ok && parent != "" {
			out2[i].Replies = append(out2[i].Replies, comment)
			continue
		}
		if parent == "" {
			rootIdx[comment.CommentID] = len(out2)
		}
		out2 = append(out2, comment)
	}
	return out2, nil
}

// Captions lists and selects caption tracks via --list-subs, then filters
// by langFilter; it does not download the VTT payload itself, and no
// caller does either: the archiver writes a placeholder sidecar per track.
func (e *ExtractorBackend) Captions(ctx context.Context, videoID string, langFilter *regexp.Regexp) ([]models.Caption, error) {
	out, err := e.run(ctx, e.baseArgs("--list-subs", "--dump-json", videoURL(videoID))...)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Subtitles map[string][]struct {
			Ext string `json:"ext"`
		} `json:"subtitles"`
		AutomaticCaptions map[string][]struct {
			Ext string `json:"ext"`
		} `json:"automatic_captions"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, retry.Classify(retry.ExtractorIncompatible, fmt.Errorf("extractor: parse captions %s: %w", videoID, err))
	}

	var captions []models.Caption
	collect := func(set map[string][]struct {
		Ext string `json:"ext"`
	}, auto bool) {
		for lang, tracks := range set {
			if !filter.MatchesLanguage(langFilter, lang) {
				continue
			}
			for _, t := range tracks {
				if t.Ext != "vtt" {
					continue
				}
				captions = append(captions, models.Caption{
					VideoID:       videoID,
					LanguageCode:  lang,
					AutoGenerated: auto,
					Format:        "vtt",
					FetchedAt:     time.Now().UTC(),
				})
			}
		}
	}
	collect(payload.Subtitles, false)
	collect(payload.AutomaticCaptions, true)
	return captions, nil
}

// ThumbnailURL resolves the best thumbnail via a single detail fetch.
func (e *ExtractorBackend) ThumbnailURL(ctx context.Context, videoID string) (string, error) {
	videos, errs, err := e.DetailBatch(ctx, []string{videoID})
	if err != nil {
		return "", err
	}
	if e, ok := errs[videoID]; ok {
		return "", e
	}
	return videos[videoID].ThumbnailURL, nil
}

func (e *ExtractorBackend) baseArgs(rest ...string) []string {
	args := append([]string{}, e.ExtraArgs...)
	return append(args, rest...)
}

// run waits for rate-limiter admission, then executes the extractor
// binary with args, returning stdout and classifying any failure.
func (e *ExtractorBackend) run(ctx context.Context, args ...string) ([]byte, error) {
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyExtractorExec(err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// classifyExtractorExec maps an extractor invocation failure onto the
// retry error kinds from its exit status and stderr text, the same
// stderr-substring approach the content store adapter uses for git/annex.
func classifyExtractorExec(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	msg := fmt.Errorf("extractor: %s", strings.TrimSpace(stderr))
	switch {
	case strings.Contains(lower, "private video"), strings.Contains(lower, "sign in"):
		return retry.Classify(retry.Auth, msg)
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "has been removed"):
		return retry.Classify(retry.RemoteUnavailable, msg)
	case strings.Contains(lower, "unsupported url"), strings.Contains(lower, "no extractor"):
		return retry.Classify(retry.ExtractorIncompatible, msg)
	case strings.Contains(lower, "http error 429"), strings.Contains(lower, "rate-limit"):
		return retry.Classify(retry.NetworkRateLimited, msg)
	default:
		return retry.Classify(retry.NetworkTransient, msg)
	}
}

func splitNonEmptyLines(data []byte) []string {
	lines := strings.Split(string(bytes.TrimSpace(data)), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func videoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
