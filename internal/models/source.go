// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// SourceKind discriminates what a Source points at. It mirrors
// config.SourceKind; models keeps its own copy so this package has no
// import-cycle dependency on internal/config.
type SourceKind string

const (
	SourceKindChannel   SourceKind = "channel"
	SourceKindPlaylist  SourceKind = "playlist"
	SourceKindVideoList SourceKind = "video-list"
	SourceKindAdHocURL  SourceKind = "ad-hoc-url"
)

// Source is the resolved, runtime view of one declared source: a URL plus
// the kind discriminator the Enumerator Facade and Archiver dispatch on.
// A Source is declared in config and never mutated by the pipeline;
// sync-state references it by URL.
type Source struct {
	URL  string     `json:"url"`
	Kind SourceKind `json:"kind"`
}
