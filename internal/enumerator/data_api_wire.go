// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"time"

	"github.com/tomtom215/ytarchive/internal/models"
)

// apiVideo is the data API's wire shape for a video detail record.
// Decoded with goccy/go-json, then converted to models.Video.
type apiVideo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelID    string   `json:"channelId"`
	ChannelTitle string   `json:"channelTitle"`
	PublishedAt  string   `json:"publishedAt"`
	Duration     string   `json:"duration"` // ISO-8601 duration, pre-parsed by caller if needed
	DurationSecs int64    `json:"durationSeconds"`
	ViewCount    int64    `json:"viewCount"`
	LikeCount    int64    `json:"likeCount"`
	CommentCount int64    `json:"commentCount"`
	Thumbnail    string   `json:"thumbnailUrl"`
	License      string   `json:"license"`
	Privacy      string   `json:"privacyStatus"`
	Tags         []string `json:"tags"`
	Categories   []string `json:"categories"`
	Language     string   `json:"defaultLanguage"`
	CaptionLangs []string `json:"captionLanguages"`
}

func (a *apiVideo) toVideo() *models.Video {
	published, _ := time.Parse(time.RFC3339, a.PublishedAt)
	return &models.Video{
		VideoID:          a.ID,
		Title:            a.Title,
		Description:      a.Description,
		ChannelID:        a.ChannelID,
		ChannelName:      a.ChannelTitle,
		PublishedAt:      published,
		DurationSecs:     a.DurationSecs,
		ViewCount:        a.ViewCount,
		LikeCount:        a.LikeCount,
		CommentCount:     a.CommentCount,
		ThumbnailURL:     a.Thumbnail,
		License:          models.License(a.License),
		Privacy:          models.Privacy(a.Privacy),
		Availability:     availabilityFromPrivacy(models.Privacy(a.Privacy)),
		Tags:             a.Tags,
		Categories:       a.Categories,
		Language:         a.Language,
		CaptionLanguages: sortedUnique(a.CaptionLangs),
		FetchedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

// availabilityFromPrivacy derives the default Availability a freshly
// fetched video gets from its privacy status; RemoteUnavailable and
// Removed are only ever set by detecting an absent/deleted response, not
// from this mapping.
func availabilityFromPrivacy(p models.Privacy) models.Availability {
	switch p {
	case models.PrivacyPrivate:
		return models.AvailabilityPrivate
	default:
		return models.AvailabilityPublic
	}
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// apiCommentThread is the data API's comment-thread wire shape.
type apiCommentThread struct {
	TopLevel apiComment   `json:"topLevelComment"`
	Replies  []apiComment `json:"replies"`
}

type apiComment struct {
	ID              string `json:"id"`
	AuthorName      string `json:"authorDisplayName"`
	AuthorChannelID string `json:"authorChannelId"`
	Text            string `json:"textOriginal"`
	PublishedAt     string `json:"publishedAt"`
	LikeCount       int64  `json:"likeCount"`
	ParentID        string `json:"parentId"`
}

func (a *apiComment) toComment(videoID string) models.Comment {
	published, _ := time.Parse(time.RFC3339, a.PublishedAt)
	return models.Comment{
		CommentID:       a.ID,
		VideoID:         videoID,
		AuthorName:      a.AuthorName,
		AuthorChannelID: a.AuthorChannelID,
		Text:            a.Text,
		PublishedAt:     published,
		LikeCount:       a.LikeCount,
		ParentCommentID: a.ParentID,
	}
}
