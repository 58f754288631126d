// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, toml string, env map[string]string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))
	t.Setenv(ConfigPathEnvVar, path)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return Load()
}

const minimalTOML = `
[[sources]]
url = "https://www.youtube.com/channel/UCabc"
type = "channel"
enabled = true
`

func TestLoad_DefaultsApply(t *testing.T) {
	cfg, err := loadFrom(t, minimalTOML, nil)
	require.NoError(t, err)

	assert.True(t, cfg.Components.Metadata)
	assert.False(t, cfg.Components.Videos)
	assert.Equal(t, 50, cfg.Backup.CheckpointInterval)
	assert.Equal(t, "{date}_{video_id}", cfg.Organization.VideoPathTemplate)
	assert.Equal(t, "video.mp4", cfg.Organization.VideoFilename)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := loadFrom(t, minimalTOML+`
[backup]
checkpoint_interval = 10

[organization]
video_path_template = "{year}/{month}/{video_id}"
`, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Backup.CheckpointInterval)
	assert.Equal(t, "{year}/{month}/{video_id}", cfg.Organization.VideoPathTemplate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	cfg, err := loadFrom(t, minimalTOML+`
[logging]
level = "debug"
`, map[string]string{"YTARCHIVE_LOGGING__LEVEL": "warn"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EmptySourcesIsLegal(t *testing.T) {
	_, err := loadFrom(t, ``, nil)
	require.NoError(t, err)
}

func TestLoad_RejectsInvalidSourceType(t *testing.T) {
	_, err := loadFrom(t, `
[[sources]]
url = "https://www.youtube.com/channel/UCabc"
type = "webcam"
enabled = true
`, nil)
	require.Error(t, err)
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "backup.checkpoint_interval", envTransformFunc("YTARCHIVE_BACKUP__CHECKPOINT_INTERVAL"))
	assert.Equal(t, "logging.level", envTransformFunc("YTARCHIVE_LOGGING__LEVEL"))
	assert.Equal(t, "organization.video_path_template", envTransformFunc("YTARCHIVE_ORGANIZATION__VIDEO_PATH_TEMPLATE"))
}

func TestValidateFilters_DateOrdering(t *testing.T) {
	err := validateFilters(&FiltersConfig{DateStart: "2024-06-01", DateEnd: "2024-01-01"})
	require.Error(t, err)

	err = validateFilters(&FiltersConfig{DateStart: "2024-01-01", DateEnd: "2024-06-01"})
	require.NoError(t, err)
}

func TestValidateFilters_DisjointPlaylistSets(t *testing.T) {
	err := validateFilters(&FiltersConfig{
		PlaylistInclude: []string{"PL1"},
		PlaylistExclude: []string{"PL1"},
	})
	require.Error(t, err)
}

func TestValidateFilters_DurationBounds(t *testing.T) {
	lo, hi := int64(600), int64(60)
	err := validateFilters(&FiltersConfig{DurationMinSeconds: &lo, DurationMaxSeconds: &hi})
	require.Error(t, err)
}

func TestLoadCredentials_ReadsEnvironmentOnly(t *testing.T) {
	t.Setenv("YTARCHIVE_DATA_API_KEY", "secret")
	t.Setenv("YTARCHIVE_EXTRACTOR_BINARY", "")
	creds := LoadCredentials()
	assert.Equal(t, "secret", creds.DataAPIKey)
	assert.Equal(t, "yt-dlp", creds.ExtractorBinary)
}
