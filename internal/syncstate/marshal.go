// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package syncstate

import (
	"github.com/goccy/go-json"
)

// knownVideoEntryFields lists the json tags VideoEntry declares, so
// UnmarshalJSON can separate known from passthrough-unknown keys.
var knownVideoEntryFields = map[string]bool{
	"availability":          true,
	"path":                  true,
	"last_fetched":          true,
	"update_count":          true,
	"backreference_sources": true,
	"last_updated_at":       true,
	"last_view_count":       true,
	"last_like_count":       true,
	"last_comment_count":    true,
	"caption_languages":     true,
}

// videoEntryAlias avoids infinite recursion through VideoEntry's own
// (Un)MarshalJSON when delegating to the standard struct encoding.
type videoEntryAlias VideoEntry

// MarshalJSON re-emits VideoEntry's known fields plus any passthrough
// fields captured at unmarshal time, so a load/save cycle never drops
// fields a newer build of this repo wrote.
func (v VideoEntry) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(videoEntryAlias(v))
	if err != nil {
		return nil, err
	}
	return mergeRaw(known, v.extra)
}

// UnmarshalJSON decodes VideoEntry's known fields and stashes everything
// else in extra for round-tripping.
func (v *VideoEntry) UnmarshalJSON(data []byte) error {
	var alias videoEntryAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*v = VideoEntry(alias)

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.extra = extractUnknown(raw, knownVideoEntryFields)
	return nil
}

var knownSourceStateFields = map[string]bool{
	"last_sync":          true,
	"last_video_id":      true,
	"consecutive_errors": true,
	"next_retry":         true,
	"status":             true,
	"videos_tracked":     true,
	"videos_downloaded":  true,
	"videos":             true,
}

type sourceStateAlias SourceState

// MarshalJSON re-emits SourceState's known fields plus passthrough fields.
func (s SourceState) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(sourceStateAlias(s))
	if err != nil {
		return nil, err
	}
	return mergeRaw(known, s.extra)
}

// UnmarshalJSON decodes SourceState's known fields and stashes the rest.
func (s *SourceState) UnmarshalJSON(data []byte) error {
	var alias sourceStateAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*s = SourceState(alias)
	if s.Videos == nil {
		s.Videos = make(map[string]*VideoEntry)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.extra = extractUnknown(raw, knownSourceStateFields)
	return nil
}

var knownDocumentFields = map[string]bool{
	"sources":               true,
	"playlist_entry_counts": true,
}

type documentAlias Document

// MarshalJSON re-emits Document's known fields plus passthrough fields.
func (d Document) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(documentAlias(d))
	if err != nil {
		return nil, err
	}
	return mergeRaw(known, d.extra)
}

// UnmarshalJSON decodes Document's known fields and stashes the rest.
func (d *Document) UnmarshalJSON(data []byte) error {
	var alias documentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*d = Document(alias)
	if d.Sources == nil {
		d.Sources = make(map[string]*SourceState)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.extra = extractUnknown(raw, knownDocumentFields)
	return nil
}

// extractUnknown returns the subset of raw whose keys are not in known.
func extractUnknown(raw map[string]json.RawMessage, known map[string]bool) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var extra map[string]json.RawMessage
	for k, v := range raw {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

// mergeRaw merges passthrough keys into an already-marshaled known-fields
// object. known must marshal to a JSON object.
func mergeRaw(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
