// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package enumerator

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFakeExtractor writes a shell script standing in for the extractor
// binary, printing script to stdout and exiting 0.
func writeFakeExtractor(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-extractor.sh")
	contents := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	return path
}

func TestExtractorBackend_ListFlat_ParsesJSONLines(t *testing.T) {
	bin := writeFakeExtractor(t, `printf '{"id":"v1"}\n{"id":"v2"}\n'`)
	e := NewExtractorBackend(bin, 100, 10)

	entries, err := e.ListFlat(context.Background(), "https://youtube.com/channel/UC1")
	require.NoError(t, err)
	require.Equal(t, []FlatID{{ID: "v1"}, {ID: "v2"}}, entries)
}

func TestExtractorBackend_DetailBatch_ParsesVideo(t *testing.T) {
	bin := writeFakeExtractor(t, `printf '{"id":"v1","title":"T","upload_date":"20230102","duration":61.5}'`)
	e := NewExtractorBackend(bin, 100, 10)

	videos, errs, err := e.DetailBatch(context.Background(), []string{"v1"})
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Contains(t, videos, "v1")
	require.Equal(t, "T", videos["v1"].Title)
	require.Equal(t, int64(61), videos["v1"].DurationSecs)
}

func TestExtractorBackend_DetailBatch_NonZeroExitClassified(t *testing.T) {
	bin := writeFakeExtractor(t, `echo "ERROR: Video unavailable" 1>&2; exit 1`)
	e := NewExtractorBackend(bin, 100, 10)

	_, errs, err := e.DetailBatch(context.Background(), []string{"v1"})
	require.NoError(t, err)
	require.Contains(t, errs, "v1")
}

func TestExtractorBackend_Captions_FiltersByLanguage(t *testing.T) {
	bin := writeFakeExtractor(t, `printf '{"subtitles":{"en":[{"ext":"vtt"}],"fr":[{"ext":"vtt"}]},"automatic_captions":{}}'`)
	e := NewExtractorBackend(bin, 100, 10)

	re := regexp.MustCompile("^en$")
	captions, err := e.Captions(context.Background(), "v1", re)
	require.NoError(t, err)
	require.Len(t, captions, 1)
	require.Equal(t, "en", captions[0].LanguageCode)
}

func TestExtractorAvailability(t *testing.T) {
	require.Equal(t, "public", string(extractorAvailability("public")))
	require.Equal(t, "private", string(extractorAvailability("needs_auth")))
	require.Equal(t, "unavailable", string(extractorAvailability("")))
}
