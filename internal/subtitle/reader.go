package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const (
	placeholderEnd = "00:00:05,000"
	msDigits       = 3
)

var (
	blockSeparator = regexp.MustCompile(`(?:\n[ \t]*){2,}`)
	indexLine      = regexp.MustCompile(`^\d+$`)
	commaRange     = regexp.MustCompile(`(\d{2}:\d{2}:\d{2},\d+)\s*-->\s*(\d{2}:\d{2}:\d{2},\d+)`)
	dotRange       = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}\.\d+)\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d+)`)
)

// ImportError reports a subtitle document that could not be decoded at all.
// Single malformed blocks never produce it; they become placeholder cues.
type ImportError struct {
	Reason string
	Block  int // 1-based block ordinal, 0 when the whole document is at fault
	Err    error
}

func (e *ImportError) Error() string {
	msg := "import srt: " + e.Reason
	if e.Block > 0 {
		msg = fmt.Sprintf("%s (block %d)", msg, e.Block)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Parse decodes SRT content into cues. Cue ids are the 1-based block
// ordinals; any index line inside a block is ignored.
func Parse(content string) (Cues, error) {
	if !utf8.ValidString(content) {
		return nil, &ImportError{Reason: "content is not valid UTF-8 text"}
	}
	if strings.ContainsRune(content, 0) {
		return nil, &ImportError{Reason: "content looks like binary data"}
	}

	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ImportError{Reason: "no subtitle blocks found"}
	}

	blocks := blockSeparator.Split(content, -1)
	cues := make(Cues, 0, len(blocks))
	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		cue, err := parseBlockSafe(block, len(cues))
		if err != nil {
			return nil, err
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

func parseBlockSafe(block string, ordinal int) (cue Cue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ImportError{
				Reason: "unexpected failure",
				Block:  ordinal + 1,
				Err:    fmt.Errorf("%v", r),
			}
		}
	}()
	return parseBlock(block, ordinal), nil
}

func parseBlock(block string, ordinal int) Cue {
	lines := strings.Split(block, "\n")
	timeLine, textLines := lines[0], lines[1:]
	if indexLine.MatchString(strings.TrimSpace(lines[0])) {
		timeLine, textLines = "", nil
		if len(lines) > 1 {
			timeLine, textLines = lines[1], lines[2:]
		}
	}
	text := strings.TrimSpace(strings.Join(textLines, "\n"))

	if m := commaRange.FindStringSubmatch(timeLine); m != nil {
		return Cue{
			ID:        ordinal + 1,
			StartTime: normalizeTimeCode(m[1], ','),
			EndTime:   normalizeTimeCode(m[2], ','),
			Text:      text,
		}
	}
	if m := dotRange.FindStringSubmatch(timeLine); m != nil {
		return Cue{
			ID:        ordinal + 1,
			StartTime: normalizeTimeCode(m[1], '.'),
			EndTime:   normalizeTimeCode(m[2], '.'),
			Text:      text,
		}
	}

	log.Warn("Invalid time format in block %d: %q", ordinal+1, timeLine)
	if text == "" {
		text = fmt.Sprintf("[Invalid time format: %s]", strings.TrimSpace(timeLine))
	}
	return Cue{
		ID:        ordinal + 1,
		StartTime: ZeroTime,
		EndTime:   placeholderEnd,
		Text:      text,
	}
}

// normalizeTimeCode rewrites the fraction separator to a comma and the
// fraction itself to exactly three digits.
func normalizeTimeCode(code string, sep byte) string {
	i := strings.LastIndexByte(code, sep)
	if i < 0 {
		return code
	}
	hms, ms := code[:i], code[i+1:]
	if len(ms) > msDigits {
		ms = ms[:msDigits]
	} else {
		ms += strings.Repeat("0", msDigits-len(ms))
	}
	return hms + "," + ms
}

// ReadFile reads and decodes an SRT file from disk
func ReadFile(path string) (*File, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("subtitle file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return ReadSRTBytes(data, path)
}

// ReadSRTBytes decodes SRT content that did not come from a regular file
func ReadSRTBytes(data []byte, path string) (*File, error) {
	cues, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	return &File{
		Cues:     cues,
		Language: DetectLanguage(cues),
		Format:   "SRT",
		Path:     path,
	}, nil
}

// DetectLanguage returns the language most cues are written in
func DetectLanguage(cues Cues) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, cue := range cues {
		if strings.TrimSpace(cue.Text) == "" {
			continue
		}
		lang := whatlanggo.DetectLang(cue.Text).Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}
	if len(langMap) == 0 {
		return language.Und
	}

	langs := make([]string, 0, len(langMap))
	for lang := range langMap {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if langMap[langs[i]] != langMap[langs[j]] {
			return langMap[langs[i]] > langMap[langs[j]]
		}
		return langs[i] < langs[j]
	})

	tag, err := language.Parse(langs[0])
	if err != nil {
		return language.Und
	}
	return tag
}
