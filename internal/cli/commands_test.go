package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const messySRT = "\ufeff7\r\n00:00:01,5 --> 00:00:03,000\r\nThe weather is lovely this morning\r\n\r\n" +
	"9\r\n00:00:04,000 --> 00:00:06,000\r\nand the sun is shining\r\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	assert.Equal(t, log.LevelDebug, resolveLevel("warn", true))
	assert.Equal(t, log.LevelWarn, resolveLevel("warn", false))
	assert.Equal(t, log.LevelError, resolveLevel("", false))
}

func TestFileProjectID(t *testing.T) {
	dir := t.TempDir()
	a, err := fileProjectID(filepath.Join(dir, "a.srt"))
	require.NoError(t, err)
	again, err := fileProjectID(filepath.Join(dir, ".", "a.srt"))
	require.NoError(t, err)
	b, err := fileProjectID(filepath.Join(dir, "b.srt"))
	require.NoError(t, err)

	assert.Positive(t, a)
	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
}

func TestFormatFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "messy.srt", messySRT)

	formatted, same, err := formatFile(path)
	require.NoError(t, err)
	assert.False(t, same)
	assert.Equal(t, "1\n00:00:01,500 --> 00:00:03,000\nThe weather is lovely this morning\n\n"+
		"2\n00:00:04,000 --> 00:00:06,000\nand the sun is shining", formatted)

	clean := writeFile(t, dir, "clean.srt", formatted)
	_, same, err = formatFile(clean)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestRunFmt_WriteDirectory(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "s1/e01.srt", messySRT)
	second := writeFile(t, dir, "s1/e02.SRT", messySRT)
	writeFile(t, dir, "s1/notes.txt", "not a subtitle")

	require.NoError(t, fmtCmd.Flags().Set("write", "true"))
	t.Cleanup(func() { _ = fmtCmd.Flags().Set("write", "false") })

	require.NoError(t, runFmt(fmtCmd, []string{dir}))

	for _, path := range []string{first, second} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("1\n00:00:01,500")), path)
	}
	notes, err := os.ReadFile(filepath.Join(dir, "s1", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "not a subtitle", string(notes))
}

func TestRunFmt_PrintsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.srt", messySRT)

	var out bytes.Buffer
	fmtCmd.SetOut(&out)
	t.Cleanup(func() { fmtCmd.SetOut(nil) })

	require.NoError(t, runFmt(fmtCmd, []string{path}))
	assert.Contains(t, out.String(), "00:00:01,500 --> 00:00:03,000")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, messySRT, string(data), "input is untouched without --write")
}

func TestRunFmt_MultipleFilesNeedWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.srt", messySRT)
	writeFile(t, dir, "b.srt", messySRT)

	err := runFmt(fmtCmd, []string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--write")
}

func TestRechunkFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "episode.srt", messySRT)

	out, count, err := rechunkFile(path, "", 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "episode.rechunked.srt"), out)
	assert.Equal(t, 4, count)

	srt, err := subtitle.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, srt.Cues, 4)
	assert.Equal(t, "The weather is", srt.Cues[0].Text)
	assert.Equal(t, "lovely this morning", srt.Cues[1].Text)
	assert.Equal(t, "00:00:03,000", srt.Cues[1].EndTime)

	_, _, err = rechunkFile(path, filepath.Join(dir, "x.srt"), 0)
	assert.Error(t, err)
}

func TestRunStats_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "episode.srt", messySRT)

	var out bytes.Buffer
	statsCmd.SetOut(&out)
	require.NoError(t, statsCmd.Flags().Set("json", "true"))
	t.Cleanup(func() {
		statsCmd.SetOut(nil)
		_ = statsCmd.Flags().Set("json", "false")
	})

	require.NoError(t, runStats(statsCmd, []string{path}))

	var got []fileStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].Path)
	assert.Equal(t, "en", got[0].Language)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, 11, got[0].Words)
	assert.Equal(t, int64(3500), got[0].TotalDurationMs)
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStats(&out, []fileStats{{Path: "a.srt", Language: "und"}}))
	assert.Contains(t, out.String(), "subtitles: 0")
	assert.Contains(t, out.String(), "duration: 0s")
}
