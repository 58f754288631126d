// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the content-store adapter: a thin wrapper over two
// external binaries invoked via os/exec — git for the text/history
// layer, git-annex for the blob layer. Extension-based routing decides,
// per call, whether a path is tracked directly in the git tree or
// handed to annex.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/ytarchive/internal/retry"
)

// Mode selects how add-url registers a URL with the store.
type Mode string

const (
	// ModeTrack registers the URL as the authoritative source without
	// retrieving bytes.
	ModeTrack Mode = "track"
	// ModeFetch downloads the content immediately.
	ModeFetch Mode = "fetch"
	// ModeFastTrack registers without verifying the URL is reachable.
	ModeFastTrack Mode = "fast-track"
)

// RoutingRule maps a file extension to whether it belongs in the direct
// git tree (text sidecars) or the annex blob store (media).
type RoutingRule struct {
	Extensions []string
	Blob       bool
}

// DefaultRouting: text sidecars (.json, .tsv, .vtt, .md) live
// directly in the tree; media (.mp4, .mkv, .webm, .jpg, .png) go to the
// annex blob store.
var DefaultRouting = []RoutingRule{
	{Extensions: []string{".json", ".tsv", ".vtt", ".md"}, Blob: false},
	{Extensions: []string{".mp4", ".mkv", ".webm", ".jpg", ".jpeg", ".png"}, Blob: true},
}

// Store drives git/git-annex as the content-addressed, version-controlled
// directory tree. All operations run rooted at Dir.
type Store struct {
	Dir         string
	GitBinary   string
	AnnexBinary string
	Routing     []RoutingRule
	Timeout     time.Duration
}

// New constructs a Store rooted at dir with the default binaries/routing.
func New(dir string) *Store {
	return &Store{
		Dir:         dir,
		GitBinary:   "git",
		AnnexBinary: "git-annex",
		Routing:     DefaultRouting,
		Timeout:     60 * time.Second,
	}
}

// InitRepo bootstraps the repository at Dir: git init, git-annex init,
// and a .gitattributes encoding the routing table so the annex's own
// largefiles matching agrees with this adapter's per-call routing.
func (s *Store) InitRepo(ctx context.Context, description string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return classify(err)
	}
	if err := s.runGit(ctx, "init", "--quiet"); err != nil {
		return err
	}
	if err := s.runAnnex(ctx, "init", description); err != nil {
		return err
	}
	return s.writeAttributes(ctx)
}

// writeAttributes renders the routing table as .gitattributes rules and
// stages the file.
func (s *Store) writeAttributes(ctx context.Context) error {
	var b strings.Builder
	for _, rule := range s.Routing {
		for _, ext := range rule.Extensions {
			if rule.Blob {
				fmt.Fprintf(&b, "*%s annex.largefiles=anything\n", ext)
			} else {
				fmt.Fprintf(&b, "*%s annex.largefiles=nothing\n", ext)
			}
		}
	}
	if err := writeFileAtomic(filepath.Join(s.Dir, ".gitattributes"), []byte(b.String())); err != nil {
		return classify(err)
	}
	return s.runGit(ctx, "add", ".gitattributes")
}

// isBlob reports whether path routes to the annex blob store rather than
// the direct git tree, based on its extension.
func (s *Store) isBlob(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, rule := range s.Routing {
		for _, e := range rule.Extensions {
			if e == ext {
				return rule.Blob
			}
		}
	}
	return false
}

// QueryTracking reports whether path is (or would be) tracked by git or
// git-annex, per the routing table.
func (s *Store) QueryTracking(path string) string {
	if s.isBlob(path) {
		return "annex"
	}
	return "git"
}

// AddURL registers url as the content for path, per mode. track/fast-track
// never download bytes; fetch does.
func (s *Store) AddURL(ctx context.Context, path, url string, mode Mode) error {
	if s.isBlob(path) {
		args := []string{"addurl", "--file", path}
		switch mode {
		case ModeTrack:
			args = append(args, "--fast")
		case ModeFastTrack:
			args = append(args, "--fast", "--relaxed")
		case ModeFetch:
			// default addurl behavior downloads immediately
		}
		args = append(args, url)
		return s.runAnnex(ctx, args...)
	}
	// Text sidecars are never addurl'd without content; callers must use
	// AddFile for anything routed to the direct tree.
	return fmt.Errorf("store: AddURL called for non-blob path %q: use AddFile", path)
}

// AddFile writes data to path (creating parent directories) and stages it
// with git add (direct tree) or git annex add (blob store, forcing local
// content into the annex rather than just a URL reference).
func (s *Store) AddFile(ctx context.Context, path string, data []byte) error {
	full := filepath.Join(s.Dir, path)
	if err := writeFileAtomic(full, data); err != nil {
		return classify(err)
	}
	if s.isBlob(path) {
		return s.runAnnex(ctx, "add", path)
	}
	return s.runGit(ctx, "add", path)
}

// SetBlobMetadata sets the annex metadata keys for path (video_id,
// title, channel, published, source_url, filetype), a no-op for
// directly-tracked (non-blob) paths.
func (s *Store) SetBlobMetadata(ctx context.Context, path string, kv map[string]string) error {
	if !s.isBlob(path) {
		return nil
	}
	args := []string{"metadata", path}
	for k, v := range kv {
		args = append(args, "-s", fmt.Sprintf("%s=%s", k, v))
	}
	return s.runAnnex(ctx, args...)
}

// Symlink creates a relative symlink at path pointing at target (itself
// relative to path's directory) and stages it with git add. Used for
// playlist directory entries, which
// are always routed through the direct tree regardless of the target's
// extension since a symlink has no content of its own to route to annex.
func (s *Store) Symlink(ctx context.Context, path, target string) error {
	full := filepath.Join(s.Dir, path)
	if err := ensureParentDir(full); err != nil {
		return classify(err)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return classify(err)
	}
	if err := os.Symlink(target, full); err != nil {
		return classify(err)
	}
	return s.runGit(ctx, "add", path)
}

// Remove deletes path (a working-tree file, e.g. a stale playlist
// symlink entry) via `git rm`, staging the deletion in the same commit
// as any other pending changes.
func (s *Store) Remove(ctx context.Context, path string) error {
	return s.runGit(ctx, "rm", "--quiet", "--ignore-unmatch", path)
}

// Move renames old to new, preserving history: a real `git mv` so the
// move is recorded as a rename in history rather than a delete+add pair
//.
func (s *Store) Move(ctx context.Context, oldPath, newPath string) error {
	if err := ensureParentDir(filepath.Join(s.Dir, newPath)); err != nil {
		return classify(err)
	}
	return s.runGit(ctx, "mv", oldPath, newPath)
}

// Commit stages nothing further (callers already staged via AddFile/Move)
// and creates a commit with message. A commit with no staged changes is
// not an error — it is a no-op, since checkpoint commits may legitimately
// fire after a source pass with nothing new to commit.
func (s *Store) Commit(ctx context.Context, message string) error {
	// git reports "nothing to commit" on stdout, which run does not
	// capture, so check for staged changes before committing.
	if err := s.runGit(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	err := s.runGit(ctx, "commit", "-m", message, "--allow-empty-message", "--quiet")
	if err != nil && isNothingToCommit(err) {
		return nil
	}
	return err
}

func (s *Store) runGit(ctx context.Context, args ...string) error {
	return s.run(ctx, s.GitBinary, args...)
}

func (s *Store) runAnnex(ctx context.Context, args ...string) error {
	return s.run(ctx, s.AnnexBinary, args...)
}

func (s *Store) run(ctx context.Context, bin string, args ...string) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, bin, args...)
	cmd.Dir = s.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyExec(err, stderr.String())
	}
	return nil
}

// classifyExec maps an os/exec failure plus captured stderr to the
// retry error kinds via stderr-substring matching.
func classifyExec(err error, stderr string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		lower := strings.ToLower(stderr)
		msg := fmt.Errorf("store: %s", stderr)
		switch {
		case strings.Contains(lower, "permission denied"):
			return retry.Classify(retry.FilesystemPermission, msg)
		case strings.Contains(lower, "no space left"):
			return retry.Classify(retry.FilesystemFull, msg)
		case strings.Contains(lower, "lock") || strings.Contains(lower, "index.lock"):
			return retry.Classify(retry.ContentStoreTransient, msg)
		default:
			return retry.Classify(retry.ContentStoreFatal, msg)
		}
	}
	return retry.Classify(retry.ContentStoreTransient, fmt.Errorf("store: %w", err))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if os.IsPermission(err) {
		return retry.Classify(retry.FilesystemPermission, err)
	}
	return retry.Classify(retry.ContentStoreTransient, err)
}

func isNothingToCommit(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "nothing to commit")
}
