// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/ytarchive/internal/archiver"
	"github.com/tomtom215/ytarchive/internal/models"
)

var (
	updateForce     bool
	updateForceDate string
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [URL]",
		Short: "Run an incremental archive pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forceDate, err := parseForceDate(updateForceDate)
			if err != nil {
				return err
			}
			opts := archiver.UpdateOptions{Force: updateForce, ForceDate: forceDate}

			return runWithLifecycle(func(ctx context.Context) error {
				if len(args) == 0 {
					return archiveApp.archiver.UpdateAll(ctx, opts)
				}
				return updateOneURL(ctx, args[0], opts)
			})
		},
	}
	cmd.Flags().BoolVar(&updateForce, "force", false, "bypass the fully-archived skip-set and re-fetch every surviving id")
	cmd.Flags().StringVar(&updateForceDate, "force-date", "", "override the recorded last-sync cutoff (RFC3339 or YYYY-MM-DD)")
	return cmd
}

func updateOneURL(ctx context.Context, url string, opts archiver.UpdateOptions) error {
	filterEngine, err := newFilterEngine(cfg.Filters)
	if err != nil {
		return fmt.Errorf("build filters: %w", err)
	}
	source := models.Source{URL: url, Kind: inferSourceKind(url)}
	return archiveApp.archiver.Update(ctx, source, cfg.Components, filterEngine, opts)
}

// parseForceDate accepts either RFC3339 or a bare YYYY-MM-DD date; an
// empty string is "not set", leaving
// UpdateOptions.ForceDate at its zero value.
func parseForceDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--force-date: %w", err)
	}
	return t, nil
}
