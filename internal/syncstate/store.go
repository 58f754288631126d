// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package syncstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

// Store is the single-writer-per-process sync-state store. Reads are
// snapshot-copies taken under an RWMutex; every update call persists via
// renameio (temp file + rename) before returning, so a crash followed by
// restart always yields the same durable view as an in-process read.
type Store struct {
	path string

	mu  sync.RWMutex
	doc *Document
}

// Open loads (or initializes) the Sync-State document at path
// (".sync/state.json"). It never returns a nil Store on success.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: newDocument()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the document from disk if present; a missing file is not an
// error (a brand-new archive starts with an empty document).
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("syncstate: read %s: %w", s.path, err)
	}
	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("syncstate: parse %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// save persists the current document atomically via renameio: write to a
// temp file in the same directory, fsync, then rename over the target.
// Must be called with s.mu held (read or write — renameio itself takes a
// consistent snapshot via the marshal call below).
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("syncstate: mkdir %s: %w", filepath.Dir(s.path), err)
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("syncstate: marshal: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("syncstate: atomic write %s: %w", s.path, err)
	}
	return nil
}

// sourceLocked returns the SourceState for url, creating it if absent.
// Caller must hold s.mu for writing.
func (s *Store) sourceLocked(url string) *SourceState {
	src, ok := s.doc.Sources[url]
	if !ok {
		src = newSourceState()
		s.doc.Sources[url] = src
	}
	return src
}

// SourceDelta mutates a SourceState in place; UpdateSource applies it
// under the write lock and persists the result.
type SourceDelta func(*SourceState)

// UpdateSource applies delta to the named source's state and persists the
// document atomically before returning.
func (s *Store) UpdateSource(url string, delta SourceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta(s.sourceLocked(url))
	return s.save()
}

// VideoDelta mutates a VideoEntry in place; UpdateVideo applies it under
// the write lock and persists the result.
type VideoDelta func(*VideoEntry)

// UpdateVideo applies delta to the named video's ledger entry within
// source url, creating the entry if absent, and persists atomically.
func (s *Store) UpdateVideo(url, videoID string, delta VideoDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.sourceLocked(url)
	entry, ok := src.Videos[videoID]
	if !ok {
		entry = &VideoEntry{LastFetched: make(map[string]time.Time)}
		src.Videos[videoID] = entry
	}
	if entry.LastFetched == nil {
		entry.LastFetched = make(map[string]time.Time)
	}
	delta(entry)
	return s.save()
}

// LastSync returns the recorded last-sync time for url, the zero time if
// the source has never synced.
func (s *Store) LastSync(url string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.doc.Sources[url]
	if !ok {
		return time.Time{}
	}
	return src.LastSync
}

// SetLastSync records the last-sync time for url and persists it.
func (s *Store) SetLastSync(url string, t time.Time) error {
	return s.UpdateSource(url, func(src *SourceState) { src.LastSync = t })
}

// KnownUnavailableSet returns the set of video ids whose recorded
// availability is in the terminal set {private, removed, unavailable}
// for the given source.
func (s *Store) KnownUnavailableSet(url string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]bool{}
	src, ok := s.doc.Sources[url]
	if !ok {
		return out
	}
	for id, entry := range src.Videos {
		if entry.IsUnavailable() {
			out[id] = true
		}
	}
	return out
}

// VideoEntrySnapshot returns a copy of the recorded ledger entry for
// videoID within source url, and whether it exists.
func (s *Store) VideoEntrySnapshot(url, videoID string) (VideoEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.doc.Sources[url]
	if !ok {
		return VideoEntry{}, false
	}
	entry, ok := src.Videos[videoID]
	if !ok {
		return VideoEntry{}, false
	}
	cp := *entry
	cp.LastFetched = make(map[string]time.Time, len(entry.LastFetched))
	for k, v := range entry.LastFetched {
		cp.LastFetched[k] = v
	}
	return cp, true
}

// SourceSnapshot returns a copy of the recorded SourceState for url, and
// whether it exists.
func (s *Store) SourceSnapshot(url string) (SourceState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.doc.Sources[url]
	if !ok {
		return SourceState{}, false
	}
	return *src, true
}

// PlaylistEntryCount returns the number of numbered symlink entries last
// written for playlistID, 0 if never recorded.
func (s *Store) PlaylistEntryCount(playlistID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.PlaylistEntryCounts[playlistID]
}

// SetPlaylistEntryCount records the number of numbered symlink entries
// just written for playlistID and persists it.
func (s *Store) SetPlaylistEntryCount(playlistID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.PlaylistEntryCounts == nil {
		s.doc.PlaylistEntryCounts = make(map[string]int)
	}
	s.doc.PlaylistEntryCounts[playlistID] = count
	return s.save()
}

// OwningSource returns some source URL other than excludeURL that already
// holds a ledger entry for videoID, if one exists. The Archiver uses this
// to dedupe ids across sources: a video id discovered from a
// second source keeps its record under the first source that archived
// it, with the second source only recorded as a back-reference.
func (s *Store) OwningSource(videoID, excludeURL string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for url, src := range s.doc.Sources {
		if url == excludeURL {
			continue
		}
		if _, ok := src.Videos[videoID]; ok {
			return url, true
		}
	}
	return "", false
}
