// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checkpoint drives periodic and signal-driven commits to the
// content store, plus a small durable ledger recording which
// checkpoints were attempted, so a crash mid-commit is distinguishable
// on restart from a clean run. The ledger is a renameio-atomic JSON
// file rather than an embedded KV store: this pipeline has a single
// in-process writer, so concurrent-lease machinery buys nothing here.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// Entry is one attempted checkpoint. Confirmed is set once the
// underlying store.Commit call returns without error; an entry found
// unconfirmed on restart means the process died between starting and
// finishing a commit, which the controller surfaces via Pending so the
// caller can log it (the content store's own commit is atomic at the
// git layer, so an unconfirmed entry is informational, not a repair
// action the controller performs itself).
type Entry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Confirmed bool      `json:"confirmed"`
}

// ledger is the on-disk shape of the checkpoint WAL file.
type ledger struct {
	Entries []*Entry `json:"entries"`
}

// WAL is the small durable ledger of attempted checkpoint commits.
type WAL struct {
	path string

	mu  sync.Mutex
	doc *ledger
}

// OpenWAL loads (or initializes) the checkpoint ledger at path
// (conventionally "<archive>/.sync/checkpoints.json").
func OpenWAL(path string) (*WAL, error) {
	w := &WAL{path: path, doc: &ledger{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return w, nil
		}
		return nil, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, w.doc); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", path, err)
	}
	return w, nil
}

// Begin records a new pending entry and persists it before the caller
// attempts the commit it describes.
func (w *WAL) Begin(source, message string) (*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := &Entry{
		ID:        uuid.New().String(),
		Source:    source,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	w.doc.Entries = append(w.doc.Entries, e)
	if err := w.saveLocked(); err != nil {
		return nil, err
	}
	return e, nil
}

// Confirm marks entryID as successfully committed and persists the
// ledger.
func (w *WAL) Confirm(entryID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.doc.Entries {
		if e.ID == entryID {
			e.Confirmed = true
			return w.saveLocked()
		}
	}
	return fmt.Errorf("checkpoint: entry %s not found", entryID)
}

// Pending returns every entry that was begun but never confirmed —
// evidence of a checkpoint attempt interrupted before it finished.
func (w *WAL) Pending() []*Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	var pending []*Entry
	for _, e := range w.doc.Entries {
		if !e.Confirmed {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	return pending
}

// saveLocked persists the ledger atomically. Caller must hold w.mu.
func (w *WAL) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir %s: %w", filepath.Dir(w.path), err)
	}
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := renameio.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: atomic write %s: %w", w.path, err)
	}
	return nil
}
