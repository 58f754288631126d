// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for config.toml, in
// priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.toml",
	"./config.toml",
}

// ConfigPathEnvVar overrides the searched paths with an explicit file.
const ConfigPathEnvVar = "YTARCHIVE_CONFIG"

// EnvPrefix is stripped from every environment variable before it is
// mapped onto a koanf path, e.g. YTARCHIVE_BACKUP__CHECKPOINT_INTERVAL
// (a double underscore separates nesting levels) becomes
// backup.checkpoint_interval.
const EnvPrefix = "YTARCHIVE_"

func defaultConfig() *Config {
	return &Config{
		Components: ComponentsConfig{
			Videos:           false,
			Metadata:         true,
			Thumbnails:       true,
			Captions:         true,
			Comments:         true,
			CommentsDepth:    1,
			CaptionLanguages: "",
		},
		Filters: FiltersConfig{
			Limit: 0,
		},
		Organization: OrganizationConfig{
			VideoPathTemplate:      "{date}_{video_id}",
			VideoFilename:          "video.mp4",
			SanitizeSeparator:      "-",
			Lowercase:              true,
			MaxPathBytes:           255,
			PlaylistIndexWidth:     4,
			PlaylistIndexSeparator: "_",
		},
		Backup: BackupConfig{
			CheckpointInterval:    50,
			CheckpointEnabled:     true,
			AutoCommitOnInterrupt: true,
			MaxWaitHours:          6,
			QuotaCheckInterval:    30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Status: StatusConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9863",
		},
	}
}

// Load loads configuration using Koanf with layered sources, highest
// priority last:
//  1. Defaults: the struct returned by defaultConfig
//  2. Config file: config.toml (path resolved by findConfigFile)
//  3. Environment variables: YTARCHIVE_* overrides anything above
//
// Remote-service credentials are intentionally never part of this
// layering — see Credentials.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
