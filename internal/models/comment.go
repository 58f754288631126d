// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Comment is one comment (root or reply) on a video. A video's comment
// file (comments.json) is an ordered array of Comment with replies nested
// one level under their root via ParentCommentID — the data model allows
// no deeper nesting.
type Comment struct {
	CommentID       string    `json:"comment_id"`
	VideoID         string    `json:"video_id"`
	AuthorName      string    `json:"author_name"`
	AuthorChannelID string    `json:"author_channel_id"`
	Text            string    `json:"text"`
	PublishedAt     time.Time `json:"published_at"`
	LikeCount       int64     `json:"like_count"`

	// ParentCommentID is empty for a root comment. When set, it must
	// resolve to another Comment.CommentID within the same file.
	ParentCommentID string `json:"parent_comment_id,omitempty"`

	ReplyCount int `json:"reply_count"`

	// Replies holds this comment's direct replies, populated only on
	// root comments when comments_depth >= 1.
	Replies []Comment `json:"replies,omitempty"`
}

// IsRoot reports whether this comment has no parent.
func (c *Comment) IsRoot() bool {
	return c.ParentCommentID == ""
}
