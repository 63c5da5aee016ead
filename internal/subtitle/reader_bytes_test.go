package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestReadSRTBytes(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello there, how are you today?\n\n2\n00:00:03,000 --> 00:00:04,000\nThe weather is lovely this morning.\n")

	file, err := ReadSRTBytes(data, "upload://sample")
	require.NoError(t, err)
	require.Len(t, file.Cues, 2)
	assert.Equal(t, "Hello there, how are you today?", file.Cues[0].Text)
	assert.Equal(t, "The weather is lovely this morning.", file.Cues[1].Text)
	assert.Equal(t, "SRT", file.Format)
	assert.Equal(t, "upload://sample", file.Path)
	assert.Equal(t, language.English, file.Language)
}

func TestReadSRTBytes_EmptyIsImportError(t *testing.T) {
	_, err := ReadSRTBytes([]byte("  \n\n "), "upload://empty")
	require.Error(t, err)

	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
}

func TestDetectLanguage(t *testing.T) {
	cues := Cues{
		{Text: "Hello, world!"},
		{Text: "こんにちは、世界!"},
		{Text: "こんにちは、世界!"},
		{Text: "Привет, мир!"},
	}
	assert.Equal(t, language.Japanese, DetectLanguage(cues))
}

func TestDetectLanguage_NoText(t *testing.T) {
	assert.Equal(t, language.Und, DetectLanguage(nil))
	assert.Equal(t, language.Und, DetectLanguage(Cues{{Text: "  "}}))
}
