// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRunIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if id := RunIDFromContext(ctx); id != "" {
		t.Errorf("expected empty run id, got %s", id)
	}

	ctx = ContextWithRunID(ctx, "run-123")
	if id := RunIDFromContext(ctx); id != "run-123" {
		t.Errorf("expected 'run-123', got '%s'", id)
	}
}

func TestVideoIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if id := VideoIDFromContext(ctx); id != "" {
		t.Errorf("expected empty video id, got %s", id)
	}

	ctx = ContextWithVideoID(ctx, "dQw4w9WgXcQ")
	if id := VideoIDFromContext(ctx); id != "dQw4w9WgXcQ" {
		t.Errorf("expected 'dQw4w9WgXcQ', got '%s'", id)
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := context.Background()
	ctx = ContextWithLogger(ctx, customLogger)

	retrievedLogger := LoggerFromContext(ctx)
	retrievedLogger.Info().Msg("test")

	output := buf.String()
	if !strings.Contains(output, "custom") {
		t.Errorf("expected custom field in output: %s", output)
	}
}

func TestLoggerFromContext_NoLogger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := LoggerFromContext(ctx)

	if logger.GetLevel() == zerolog.Disabled {
		t.Error("expected valid logger")
	}
}

func TestCtx_AttachesRunAndVideoID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	ctx := context.Background()
	ctx = ContextWithRunID(ctx, "run-abc")
	ctx = ContextWithVideoID(ctx, "vid-def")

	Ctx(ctx).Info().Msg("context test")

	output := buf.String()
	if !strings.Contains(output, "run-abc") {
		t.Errorf("expected run_id in output: %s", output)
	}
	if !strings.Contains(output, "vid-def") {
		t.Errorf("expected video_id in output: %s", output)
	}
}

func TestCtx_NoIDsOnBareContext(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	Ctx(context.Background()).Info().Msg("bare context")

	output := buf.String()
	if strings.Contains(output, "run_id") || strings.Contains(output, "video_id") {
		t.Errorf("did not expect run_id/video_id on a bare context: %s", output)
	}
}

func TestCtx_PreservesLoggerStoredOnContext(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf).With().Str("source", "https://youtube.com/@example").Logger()

	ctx := ContextWithLogger(context.Background(), custom)
	ctx = ContextWithRunID(ctx, "run-xyz")

	Ctx(ctx).Info().Msg("scoped")

	output := buf.String()
	if !strings.Contains(output, "source") || !strings.Contains(output, "run-xyz") {
		t.Errorf("expected both stored logger fields and run_id: %s", output)
	}
}
