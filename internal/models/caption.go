// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Caption is one available-language caption track for a video. It lives as
// a sidecar file next to the video's materialized directory
// (videos/<path>/video.<lang>.vtt) plus an entry in the per-video
// captions.tsv manifest the Exporter produces.
type Caption struct {
	VideoID      string    `json:"video_id"`
	LanguageCode string    `json:"language_code"`
	LanguageName string    `json:"language_name"`
	AutoGenerated bool     `json:"auto_generated"`
	Format       string    `json:"format"`
	FilePath     string    `json:"file_path"`
	FetchedAt    time.Time `json:"fetched_at"`
}
