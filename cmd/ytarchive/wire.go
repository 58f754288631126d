// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/ytarchive/internal/archiver"
	"github.com/tomtom215/ytarchive/internal/checkpoint"
	"github.com/tomtom215/ytarchive/internal/config"
	"github.com/tomtom215/ytarchive/internal/enumerator"
	"github.com/tomtom215/ytarchive/internal/export"
	"github.com/tomtom215/ytarchive/internal/filter"
	"github.com/tomtom215/ytarchive/internal/pathplan"
	"github.com/tomtom215/ytarchive/internal/pipeline"
	"github.com/tomtom215/ytarchive/internal/quota"
	"github.com/tomtom215/ytarchive/internal/store"
	"github.com/tomtom215/ytarchive/internal/syncstate"
)

// defaultDataAPIBaseURL is the data-API backend's endpoint; overridable
// via YTARCHIVE_DATA_API_BASE_URL for tests and alternate deployments,
// without rebuilding the binary.
const defaultDataAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// app bundles a constructed Archiver with the pieces the command tree
// needs to start and stop around it: the pipeline pool's event-logger
// router, and the optional status surface.
type app struct {
	archiver *archiver.Archiver
	pool     *pipeline.Pool
	exporter *export.Exporter
}

// wireArchiver assembles the ten components into an Archiver, following
// the pipeline's data flow: store + sync-state + planner feed the
// Archiver directly; the enumerator facade wraps both backends behind
// the quota governor; checkpoint and pipeline are handed in fully
// constructed, matching archiver.New's signature.
func wireArchiver(dir string, cfg config.Config, creds config.Credentials) (*app, error) {
	syncDir := filepath.Join(dir, ".sync")

	st := store.New(dir)

	syncState, err := syncstate.Open(filepath.Join(syncDir, "state.json"))
	if err != nil {
		return nil, fmt.Errorf("open sync-state: %w", err)
	}

	planner := pathplan.New(cfg.Organization)

	ckpt, err := checkpoint.New(st, filepath.Join(syncDir, "checkpoints.json"), checkpoint.Config{
		Interval:              cfg.Backup.CheckpointInterval,
		Enabled:               cfg.Backup.CheckpointEnabled,
		AutoCommitOnInterrupt: cfg.Backup.AutoCommitOnInterrupt,
	})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint controller: %w", err)
	}

	governor, err := quota.New(quota.Config{
		Enabled:       true,
		MaxWait:       time.Duration(cfg.Backup.MaxWaitHours * float64(time.Hour)),
		CheckInterval: cfg.Backup.QuotaCheckInterval,
	}, quota.SystemClock{})
	if err != nil {
		return nil, fmt.Errorf("build quota governor: %w", err)
	}

	dataAPIBaseURL := envOr("YTARCHIVE_DATA_API_BASE_URL", defaultDataAPIBaseURL)
	extractor := enumerator.NewExtractorBackend(creds.ExtractorBinary, 0.5, 2)
	if creds.ExtractorCookiesPath != "" {
		extractor.ExtraArgs = append(extractor.ExtraArgs, "--cookies", creds.ExtractorCookiesPath)
	}
	var dataAPI enumerator.Backend
	if creds.DataAPIKey != "" {
		dataAPI = enumerator.NewDataAPIBackend(dataAPIBaseURL, creds.DataAPIKey)
	}
	// dataAPI stays nil without a configured key; Facade.New treats that
	// as "unconfigured" and routes every operation to the extractor.
	facade := enumerator.New(dataAPI, extractor, governor)

	pool := pipeline.New(pipeline.Config{})

	exporter := export.New(dir)

	a, err := archiver.New(dir, cfg, facade, syncState, planner, st, ckpt, pool, exporter)
	if err != nil {
		return nil, fmt.Errorf("build archiver: %w", err)
	}
	return &app{archiver: a, pool: pool, exporter: exporter}, nil
}

// newFilterEngine builds a filter.Engine from CLI-supplied overrides for
// the single-URL "backup URL" / "update URL" forms, which bypass
// config.toml's per-source [filters] table entirely.
func newFilterEngine(filters config.FiltersConfig) (*filter.Engine, error) {
	return filter.New(filters)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
