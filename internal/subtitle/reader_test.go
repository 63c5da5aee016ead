package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	cues, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, Cue{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:04,000", Text: "Hello, world!"}, cues[0])
	assert.Equal(t, "This is a test.\nWith multiple lines.", cues[1].Text)
	assert.Equal(t, 3, cues[2].ID)
}

func TestParse_IgnoresIndexNumbers(t *testing.T) {
	cues, err := Parse("17\n00:00:01,000 --> 00:00:02,000\nfirst\n\n99\n00:00:03,000 --> 00:00:04,000\nsecond")
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.Equal(t, 1, cues[0].ID)
	assert.Equal(t, 2, cues[1].ID)
}

func TestParse_BlocksWithoutIndex(t *testing.T) {
	cues, err := Parse("00:00:01,000 --> 00:00:02,000\nno index\nsecond line")
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "00:00:01,000", cues[0].StartTime)
	assert.Equal(t, "no index\nsecond line", cues[0].Text)
}

func TestParse_NormalizesMilliseconds(t *testing.T) {
	cues, err := Parse("1\n00:00:01,5 --> 00:00:02,123456\ntext")
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "00:00:01,500", cues[0].StartTime)
	assert.Equal(t, "00:00:02,123", cues[0].EndTime)
}

func TestParse_DotSeparator(t *testing.T) {
	cues, err := Parse("1\n00:00:01.25 --> 00:00:02.000\nwebvtt style")
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "00:00:01,250", cues[0].StartTime)
	assert.Equal(t, "00:00:02,000", cues[0].EndTime)
}

func TestParse_MalformedBlockBecomesPlaceholder(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n" +
		"2\n00:00:xx,000 -> broken\nsecond\n\n" +
		"3\n00:00:05,000 --> 00:00:06,000\nthird"

	cues, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, Cue{ID: 2, StartTime: "00:00:00,000", EndTime: "00:00:05,000", Text: "second"}, cues[1])
	assert.Equal(t, "third", cues[2].Text)
}

func TestParse_MalformedBlockWithoutText(t *testing.T) {
	cues, err := Parse("1\nnot a time line")
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "[Invalid time format: not a time line]", cues[0].Text)
}

func TestParse_CRLFAndBOM(t *testing.T) {
	cues, err := Parse("\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nwindows\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nline")
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.Equal(t, "windows", cues[0].Text)
	assert.Equal(t, "line", cues[1].Text)
}

func TestParse_CatastrophicInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "blank", content: "\n\n   \n"},
		{name: "binary", content: "1\n\x00\x01\x02"},
		{name: "invalid utf8", content: "1\n00:00:01,000 --> 00:00:02,000\n\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues, err := Parse(tt.content)
			require.Error(t, err)
			assert.Nil(t, cues)

			var importErr *ImportError
			assert.ErrorAs(t, err, &importErr)
		})
	}
}

func TestReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	srtPath := filepath.Join(tmpDir, "test.srt")
	require.NoError(t, os.WriteFile(srtPath, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"), 0o644))

	file, err := ReadFile(srtPath)
	require.NoError(t, err)
	require.Len(t, file.Cues, 1)
	assert.Equal(t, srtPath, file.Path)

	_, err = ReadFile(filepath.Join(tmpDir, "missing.srt"))
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(tmpDir, "test.vtt"))
	assert.Error(t, err)
}
