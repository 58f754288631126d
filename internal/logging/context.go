// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// runIDKey is the context key for the id generated once per
	// `backup`/`update` invocation (runWithLifecycle) and carried
	// through every log line produced during that run.
	runIDKey contextKey = "run_id"

	// videoIDKey is the context key for the video id a component job is
	// currently fetching — the pipeline pool attaches it around each
	// job so logging from inside a component fetch (including a
	// fallback warning logged deep in the Enumerator Facade) is
	// automatically scoped to the video it belongs to.
	videoIDKey contextKey = "video_id"

	// loggerKey is the context key for a pre-built logger, letting a
	// caller install one (e.g. with extra fields already attached)
	// without every downstream Ctx call rebuilding it from scratch.
	loggerKey contextKey = "logger"
)

// ContextWithRunID returns a new context carrying id as the run id.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext retrieves the run id from context, "" if absent.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithVideoID returns a new context carrying id as the video the
// current component job belongs to.
func ContextWithVideoID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, videoIDKey, id)
}

// VideoIDFromContext retrieves the video id from context, "" if absent.
func VideoIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(videoIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context, falling back to the
// global logger if none is stored.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with run_id and video_id fields attached whenever
// ctx carries them — the one way every package in this repo is expected
// to log from inside a source- or video-scoped call.
//
//	logging.Ctx(ctx).Info().Str("source", url).Msg("enumerating")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()

	if runID := RunIDFromContext(ctx); runID != "" {
		logCtx = logCtx.Str("run_id", runID)
	}
	if videoID := VideoIDFromContext(ctx); videoID != "" {
		logCtx = logCtx.Str("video_id", videoID)
	}

	logger := logCtx.Logger()
	return &logger
}
