// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package archiver

import (
	"fmt"

	"github.com/tomtom215/ytarchive/internal/models"
)

// placeholderVTT renders a minimal, valid WebVTT file standing in for a
// caption track's actual text. The extractor backend's Captions call
// deliberately returns track metadata only, not payload bytes (language,
// auto-generated flag, format) — downloading the cues themselves is a
// separate, heavier extractor invocation this repo does not drive, so the
// sidecar is an honest placeholder rather than a silently empty file.
func placeholderVTT(c models.Caption) []byte {
	kind := "uploaded"
	if c.AutoGenerated {
		kind = "auto-generated"
	}
	return []byte(fmt.Sprintf(
		"WEBVTT\n\nNOTE\n%s caption track (%s), cues not materialized by this archive.\n\n00:00:00.000 --> 00:00:05.000\n[%s]\n",
		c.LanguageCode, kind, c.LanguageCode,
	))
}
