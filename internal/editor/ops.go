// Package editor holds the cue editing operations. Every operation is a
// pure transform over subtitle.Cues meant to be applied through
// history.History.Perform; none of them checks capabilities.
package editor

import (
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

// Transform maps one cue sequence snapshot to the next.
type Transform func(subtitle.Cues) subtitle.Cues

const (
	addedCueSeconds = 2
	defaultAddedEnd = "00:00:02,000"
)

func Find(cues subtitle.Cues, id int) (subtitle.Cue, int, bool) {
	for i, c := range cues {
		if c.ID == id {
			return c, i, true
		}
	}
	return subtitle.Cue{}, -1, false
}

func Contains(cues subtitle.Cues, id int) bool {
	_, _, ok := Find(cues, id)
	return ok
}

// MaxID returns the largest cue id, or 0 for an empty sequence.
func MaxID(cues subtitle.Cues) int {
	maxID := 0
	for _, c := range cues {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	return maxID
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Add inserts an empty two second cue after the cue with afterID. When
// hasAfter is false or afterID is unknown the cue is appended and starts
// at zero.
func Add(afterID int, hasAfter bool) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		newCue := subtitle.Cue{
			ID:        MaxID(prev) + 1,
			StartTime: subtitle.ZeroTime,
			EndTime:   defaultAddedEnd,
		}

		index := len(prev)
		if hasAfter {
			if pred, i, ok := Find(prev, afterID); ok {
				index = i + 1
				newCue.StartTime = pred.EndTime
				newCue.EndTime = subtitle.IncrementTime(pred.EndTime, addedCueSeconds)
			}
		}

		next := make(subtitle.Cues, 0, len(prev)+1)
		next = append(next, prev[:index]...)
		next = append(next, newCue)
		return append(next, prev[index:]...)
	}
}

func Delete(id int) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		_, index, ok := Find(prev, id)
		if !ok {
			return prev
		}
		next := make(subtitle.Cues, 0, len(prev)-1)
		next = append(next, prev[:index]...)
		return append(next, prev[index+1:]...)
	}
}

func UpdateField(id int, field subtitle.Field, value string) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		_, index, ok := Find(prev, id)
		if !ok || !field.Valid() {
			return prev
		}

		next := prev.Clone()
		switch field {
		case subtitle.FieldStartTime:
			next[index].StartTime = value
		case subtitle.FieldEndTime:
			next[index].EndTime = value
		case subtitle.FieldText:
			next[index].Text = value
		}
		return next
	}
}

// Split cuts a cue at its midpoint. The first half keeps the id and the
// first floor(n/2) words; the second half gets a new id.
func Split(id int) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		cue, index, ok := Find(prev, id)
		if !ok {
			return prev
		}

		midTime := subtitle.CalculateMidTime(cue.StartTime, cue.EndTime)
		words := strings.Fields(cue.Text)
		half := len(words) / 2

		first := cue
		first.EndTime = midTime
		first.Text = strings.Join(words[:half], " ")

		second := subtitle.Cue{
			ID:        MaxID(prev) + 1,
			StartTime: midTime,
			EndTime:   cue.EndTime,
			Text:      strings.Join(words[half:], " "),
		}

		next := make(subtitle.Cues, 0, len(prev)+1)
		next = append(next, prev[:index]...)
		next = append(next, first, second)
		return append(next, prev[index+1:]...)
	}
}

// Merge joins a cue with whichever neighbour has the smaller time gap.
// The predecessor only wins when its gap is strictly smaller.
func Merge(id int) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		cue, index, ok := Find(prev, id)
		if !ok {
			return prev
		}

		hasPrev := index > 0
		hasNext := index < len(prev)-1
		if !hasPrev && !hasNext {
			return prev
		}

		var first int
		switch {
		case hasPrev && hasNext:
			prevGap := absMs(subtitle.TimeToMs(cue.StartTime) - subtitle.TimeToMs(prev[index-1].EndTime))
			nextGap := absMs(subtitle.TimeToMs(prev[index+1].StartTime) - subtitle.TimeToMs(cue.EndTime))
			if prevGap < nextGap {
				first = index - 1
			} else {
				first = index
			}
		case hasPrev:
			first = index - 1
		default:
			first = index
		}

		merged := mergePair(prev[first], prev[first+1])

		next := make(subtitle.Cues, 0, len(prev)-1)
		next = append(next, prev[:first]...)
		next = append(next, merged)
		return append(next, prev[first+2:]...)
	}
}

func mergePair(a, b subtitle.Cue) subtitle.Cue {
	merged := subtitle.Cue{
		ID:        a.ID,
		StartTime: a.StartTime,
		EndTime:   b.EndTime,
		Text:      a.Text + "\n" + b.Text,
	}
	if subtitle.TimeToMs(b.StartTime) < subtitle.TimeToMs(a.StartTime) {
		merged.StartTime = b.StartTime
	}
	if subtitle.TimeToMs(a.EndTime) > subtitle.TimeToMs(b.EndTime) {
		merged.EndTime = a.EndTime
	}
	return merged
}

// Rechunk splits every cue holding more than wordsPerChunk words into
// consecutive chunks spread evenly over the original span. Callers must
// reject wordsPerChunk <= 0.
func Rechunk(wordsPerChunk int) Transform {
	return func(prev subtitle.Cues) subtitle.Cues {
		if wordsPerChunk <= 0 || len(prev) == 0 {
			return prev
		}

		nextID := MaxID(prev) + 1
		next := make(subtitle.Cues, 0, len(prev))

		for _, cue := range prev {
			words := strings.Fields(cue.Text)
			if len(words) <= wordsPerChunk || len(words) <= 1 {
				next = append(next, cue)
				continue
			}

			chunks := chunkWords(words, wordsPerChunk)
			startMs := subtitle.TimeToMs(cue.StartTime)
			duration := subtitle.TimeToMs(cue.EndTime) - startMs
			count := int64(len(chunks))

			for i, text := range chunks {
				id := cue.ID
				if i > 0 {
					id = nextID
					nextID++
				}
				// boundaries are computed from the span so the last chunk
				// ends exactly where the original did
				chunkStart := startMs + duration*int64(i)/count
				chunkEnd := startMs + duration*int64(i+1)/count
				next = append(next, subtitle.Cue{
					ID:        id,
					StartTime: subtitle.MsToTime(chunkStart),
					EndTime:   subtitle.MsToTime(chunkEnd),
					Text:      text,
				})
			}
		}
		return next
	}
}

func chunkWords(words []string, size int) []string {
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

func absMs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
