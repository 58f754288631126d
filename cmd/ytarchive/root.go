// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command ytarchive is the thin command dispatcher and flag parser: it
// exists only to give the archival pipeline (internal/archiver and its
// dependencies) a runnable entrypoint, parsing flags and delegating
// every actual decision to internal/archiver.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tomtom215/ytarchive/internal/checkpoint"
	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/logging"
)

const statusShutdownTimeout = 5 * time.Second

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	flagDir        string
	flagConfigPath string
	flagStatusAddr string
	flagLogLevel   string
	flagJSON       bool
	flagQuiet      bool

	cfg        config.Config
	creds      config.Credentials
	archiveApp *app
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ytarchive",
		Short:         "Archive YouTube channels and playlists into a content-addressed repository",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// init runs before any config.toml exists; it bootstraps with
			// the built-in defaults instead of a loaded configuration.
			if cmd.Name() == "init" {
				return nil
			}
			return bootstrap(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&flagDir, "dir", ".", "archive root directory")
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "explicit config.toml path (overrides search order)")
	root.PersistentFlags().StringVar(&flagStatusAddr, "status-addr", "", "override [status].addr, e.g. 127.0.0.1:9863")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the configured log level (trace|debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit structured JSON events on stderr regardless of configured format")
	root.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress everything below the error level")

	root.AddCommand(newInitCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newExportCmd())
	return root
}

// bootstrap loads configuration and credentials and wires the Archiver,
// once per process invocation, before any subcommand's RunE runs.
func bootstrap(ctx context.Context) error {
	if flagConfigPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, flagConfigPath); err != nil {
			return fmt.Errorf("set %s: %w", config.ConfigPathEnvVar, err)
		}
	}

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = *loaded
	if flagStatusAddr != "" {
		cfg.Status.Enabled = true
		cfg.Status.Addr = flagStatusAddr
	}
	creds = config.LoadCredentials()

	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagQuiet {
		cfg.Logging.Level = "error"
	}
	if flagJSON {
		cfg.Logging.Format = "json"
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	wired, err := wireArchiver(flagDir, cfg, creds)
	if err != nil {
		return fmt.Errorf("wire archiver: %w", err)
	}
	archiveApp = wired
	return nil
}

// runWithLifecycle starts the pipeline pool's event-logger router and the
// optional status surface, runs fn, then shuts both down in reverse
// order — the shape every long-running command in this repo follows.
func runWithLifecycle(fn func(ctx context.Context) error) error {
	ctx, cancel := checkpoint.WithSignals(context.Background())
	defer cancel()

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)

	archiveApp.pool.Start(ctx)

	if err := archiveApp.archiver.StartStatusServer(ctx); err != nil {
		return fmt.Errorf("start status server: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
		defer stopCancel()
		if err := archiveApp.archiver.StopStatusServer(stopCtx); err != nil {
			log := logging.Logger()
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}()

	return fn(ctx)
}
