// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/models"
)

var (
	backupLimit          int
	backupLicense        []string
	backupDateStart      string
	backupDateEnd        string
	backupDownloadVideos bool
	backupNoMetadata     bool
	backupNoThumbnails   bool
	backupNoCaptions     bool
	backupNoComments     bool
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [URL]",
		Short: "Run a full, non-incremental archive pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLifecycle(func(ctx context.Context) error {
				if len(args) == 0 {
					return archiveApp.archiver.BackupAll(ctx)
				}
				return backupOneURL(ctx, args[0])
			})
		},
	}
	cmd.Flags().IntVar(&backupLimit, "limit", 0, "stop after N videos (0 = unlimited)")
	cmd.Flags().StringSliceVar(&backupLicense, "license", nil, "restrict to license(s): standard, creativeCommon")
	cmd.Flags().StringVar(&backupDateStart, "date-start", "", "include videos published on/after this date")
	cmd.Flags().StringVar(&backupDateEnd, "date-end", "", "include videos published before this date")
	cmd.Flags().BoolVar(&backupDownloadVideos, "download-videos", false, "fetch video bytes, not just track the URL")
	cmd.Flags().BoolVar(&backupNoMetadata, "no-metadata", false, "skip the metadata component")
	cmd.Flags().BoolVar(&backupNoThumbnails, "no-thumbnails", false, "skip the thumbnail component")
	cmd.Flags().BoolVar(&backupNoCaptions, "no-captions", false, "skip the captions component")
	cmd.Flags().BoolVar(&backupNoComments, "no-comments", false, "skip the comments component")
	return cmd
}

// backupOneURL builds a transient source, component set and filter engine
// from the CLI overrides and
// runs a single-source backup, bypassing config.toml's [[sources]] list
// entirely — the single-URL form of the command.
func backupOneURL(ctx context.Context, url string) error {
	components := cfg.Components
	if backupNoMetadata {
		components.Metadata = false
	}
	if backupNoThumbnails {
		components.Thumbnails = false
	}
	if backupNoCaptions {
		components.Captions = false
	}
	if backupNoComments {
		components.Comments = false
	}
	components.Videos = backupDownloadVideos

	filters := config.FiltersConfig{
		Limit:     backupLimit,
		DateStart: backupDateStart,
		DateEnd:   backupDateEnd,
		License:   backupLicense,
	}
	filterEngine, err := newFilterEngine(filters)
	if err != nil {
		return fmt.Errorf("build filters: %w", err)
	}

	source := models.Source{URL: url, Kind: inferSourceKind(url)}
	return archiveApp.archiver.Backup(ctx, source, components, filterEngine)
}

// inferSourceKind guesses a SourceKind from URL shape for the ad hoc
// "backup URL" CLI form, where no config.toml entry declares the kind
// explicitly. A playlist "list=" query parameter or a /channel//@handle
// path segment is unambiguous; anything else is treated as a single
// ad-hoc URL rather than guessed further.
func inferSourceKind(url string) models.SourceKind {
	switch {
	case strings.Contains(url, "list="):
		return models.SourceKindPlaylist
	case strings.Contains(url, "/channel/"), strings.Contains(url, "/c/"), strings.Contains(url, "/user/"), strings.Contains(url, "/@"):
		return models.SourceKindChannel
	default:
		return models.SourceKindAdHocURL
	}
}
