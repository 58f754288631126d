// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strings"
)

// envTransformFunc maps a full environment variable name onto a koanf
// dotted path: the YTARCHIVE_ prefix is stripped, a double underscore
// denotes nesting, and a single underscore is kept as a literal word
// separator within one path segment.
//
// Examples:
//
//	YTARCHIVE_BACKUP__CHECKPOINT_INTERVAL -> backup.checkpoint_interval
//	YTARCHIVE_ORGANIZATION__VIDEO_PATH_TEMPLATE -> organization.video_path_template
//	YTARCHIVE_LOGGING__LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Credentials holds the remote-service credentials. These come only
// from the environment, never from config.toml, so a committed config
// file can never leak a key.
type Credentials struct {
	// DataAPIKey authenticates calls to the data-API enumerator
	// backend. Empty means the facade never prefers that backend.
	DataAPIKey string

	// ExtractorCookiesPath, if set, is passed to the extractor backend
	// so it can access playlists that require a logged-in session.
	ExtractorCookiesPath string

	// ExtractorBinary overrides the extractor executable name/path.
	ExtractorBinary string
}

// LoadCredentials reads credentials directly from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		DataAPIKey:           os.Getenv("YTARCHIVE_DATA_API_KEY"),
		ExtractorCookiesPath: os.Getenv("YTARCHIVE_EXTRACTOR_COOKIES"),
		ExtractorBinary:      getEnv("YTARCHIVE_EXTRACTOR_BINARY", "yt-dlp"),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
