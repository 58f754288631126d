// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package archiver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ytarchive/internal/models"
)

// materializeSource writes the source-level entity record (a channel or
// playlist) derived from the surviving video set, dispatching on
// source.Kind. Video-list and ad-hoc-url sources have no owning entity
// of their own and are skipped — not every source produces a grouping
// entity.
func (a *Archiver) materializeSource(ctx context.Context, source models.Source, videos []*models.Video, playlistIDs []string) error {
	switch source.Kind {
	case models.SourceKindChannel:
		return a.materializeChannel(ctx, source, videos)
	case models.SourceKindPlaylist:
		return a.materializePlaylist(ctx, source, videos)
	default:
		return nil
	}
}

// materializeChannel synthesizes a models.Channel from the surviving
// video set and writes channels/<id>/metadata.json. There is no
// dedicated channel-detail enumerator call in this deployment, so the
// channel record is derived entirely from what DetailBatch already
// returned for its videos.
func (a *Archiver) materializeChannel(ctx context.Context, source models.Source, videos []*models.Video) error {
	id := sourceID(source.URL, source.Kind)
	channel := &models.Channel{
		ChannelID:  id,
		LastSyncAt: time.Now().UTC(),
	}
	videoIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.VideoID)
		if channel.Name == "" {
			channel.Name = v.ChannelName
		}
	}
	channel.VideoIDs = videoIDs
	channel.VideoCount = int64(len(videoIDs))

	data, err := json.MarshalIndent(channel, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal channel %s: %w", id, err)
	}
	path := filepath.Join("channels", id, "metadata.json")
	return a.store.AddFile(ctx, path, data)
}

// materializePlaylist synthesizes a models.Playlist from the surviving
// video set (preserving enumeration order), writes
// playlists/<id>/metadata.json, and replaces the playlist directory's
// numbered symlink entries with the current set, removing any entries
// left over from a shrunk playlist.
func (a *Archiver) materializePlaylist(ctx context.Context, source models.Source, videos []*models.Video) error {
	id := sourceID(source.URL, source.Kind)

	videoIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.VideoID)
	}
	playlist := &models.Playlist{
		PlaylistID: id,
		VideoIDs:   videoIDs,
		VideoCount: len(videoIDs),
		UpdatedAt:  time.Now().UTC(),
	}
	if len(videos) > 0 {
		playlist.ChannelID = videos[0].ChannelID
	}

	data, err := json.MarshalIndent(playlist, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal playlist %s: %w", id, err)
	}
	if err := a.store.AddFile(ctx, filepath.Join("playlists", id, "metadata.json"), data); err != nil {
		return err
	}

	return a.relinkPlaylistEntries(ctx, id, videos)
}

// relinkPlaylistEntries writes a fresh, zero-padded numbered symlink per
// video into playlists/<id>/, first removing the previously recorded
// entry at that index (whose slug may differ), and removes any previously
// recorded entry beyond the current video count, so a playlist that has
// shrunk or been renumbered since the last sync leaves no stale entries
// behind.
func (a *Archiver) relinkPlaylistEntries(ctx context.Context, playlistID string, videos []*models.Video) error {
	prevCount := a.syncState.PlaylistEntryCount(playlistID)

	for i, v := range videos {
		slug := a.planner.Sanitize(v.Title)
		entryName := a.planner.PlaylistEntryName(i, slug)
		target := filepath.Join("..", "..", v.FilePath)
		entryPath := filepath.Join("playlists", playlistID, entryName)
		if i < prevCount {
			stale := filepath.Join("playlists", playlistID, a.planner.PlaylistEntryName(i, "*"))
			if err := a.store.Remove(ctx, stale); err != nil {
				return fmt.Errorf("remove stale playlist entry %d: %w", i, err)
			}
		}
		if err := a.store.Symlink(ctx, entryPath, target); err != nil {
			return fmt.Errorf("symlink playlist entry %d: %w", i, err)
		}
	}

	for i := len(videos); i < prevCount; i++ {
		entryName := a.planner.PlaylistEntryName(i, "*")
		pattern := filepath.Join("playlists", playlistID, entryName)
		if err := a.store.Remove(ctx, pattern); err != nil {
			return fmt.Errorf("remove stale playlist entry %d: %w", i, err)
		}
	}

	return a.syncState.SetPlaylistEntryCount(playlistID, len(videos))
}
