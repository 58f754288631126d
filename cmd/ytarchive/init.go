// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/ytarchive/internal/store"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init DIR [URL...]",
		Short: "Bootstrap an archive: repository, tracking rules, config.toml template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), args[0], args[1:])
		},
	}
}

// runInit creates the archive directory, initializes the git/git-annex
// repository with the default tracking rules, writes a config.toml
// template (seeded with one [[sources]] entry per URL argument), and
// commits the result. It refuses to overwrite an existing config.toml so
// a mistyped `init` can never clobber a configured archive.
func runInit(ctx context.Context, dir string, urls []string) error {
	configPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("init: %s already exists, refusing to overwrite", configPath)
	}

	st := store.New(dir)
	if err := st.InitRepo(ctx, "ytarchive"); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if err := st.AddFile(ctx, "config.toml", []byte(configTemplate(urls))); err != nil {
		return fmt.Errorf("init: write config.toml: %w", err)
	}
	if err := st.Commit(ctx, "Initialize archive"); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Initialized archive in %s\n", dir)
	if len(urls) == 0 {
		fmt.Fprintln(os.Stdout, "Edit config.toml to declare [[sources]], then run: ytarchive backup")
	}
	return nil
}

// configTemplate renders the config.toml template, seeding a [[sources]]
// entry per URL. Values mirror the built-in defaults so the file
// documents what an unedited archive will do.
func configTemplate(urls []string) string {
	var b strings.Builder
	b.WriteString(`# ytarchive configuration.
# Credentials are read from the environment, never from this file:
#   YTARCHIVE_DATA_API_KEY        data-API key (optional; extractor-only without it)
#   YTARCHIVE_EXTRACTOR_BINARY    extractor executable (default: yt-dlp)
#   YTARCHIVE_EXTRACTOR_COOKIES   cookies file for private playlists (optional)

`)
	for _, url := range urls {
		fmt.Fprintf(&b, "[[sources]]\nurl = %q\ntype = %q\nenabled = true\n\n", url, inferSourceKind(url))
	}
	if len(urls) == 0 {
		b.WriteString(`# [[sources]]
# url = "https://www.youtube.com/@example"
# type = "channel"
# enabled = true

`)
	}
	b.WriteString(`[components]
videos = false
metadata = true
thumbnails = true
captions = true
comments = true
comments_depth = 1
caption_languages = ""

[filters]
limit = 0

[organization]
video_path_template = "{date}_{video_id}"
video_filename = "video.mp4"
sanitize_separator = "-"
lowercase = true
max_path_bytes = 255
playlist_index_width = 4
playlist_index_separator = "_"

[backup]
checkpoint_interval = 50
checkpoint_enabled = true
auto_commit_on_interrupt = true
max_wait_hours = 6.0

[logging]
level = "info"
format = "json"

[status]
enabled = false
addr = "127.0.0.1:9863"
`)
	return b.String()
}
