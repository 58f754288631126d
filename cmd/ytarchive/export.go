// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Regenerate the summary tables from the entity records on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLifecycle(func(ctx context.Context) error {
				return archiveApp.exporter.Export(ctx)
			})
		},
	}
}
