package editor

import (
	"fmt"
	"math"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

type Stats struct {
	Count           int   `json:"count"`
	Words           int   `json:"words"`
	TotalDurationMs int64 `json:"total_duration_ms"`
	WordsPerMinute  int   `json:"words_per_minute"`
}

// ComputeStats sums cue durations and words. Inverted ranges contribute
// no duration.
func ComputeStats(cues subtitle.Cues) Stats {
	stats := Stats{Count: len(cues)}
	for _, c := range cues {
		stats.Words += WordCount(c.Text)
		if d := subtitle.TimeToMs(c.EndTime) - subtitle.TimeToMs(c.StartTime); d > 0 {
			stats.TotalDurationMs += d
		}
	}

	minutes := float64(stats.TotalDurationMs) / 60000
	if minutes == 0 {
		minutes = 1
	}
	stats.WordsPerMinute = int(math.Round(float64(stats.Words) / minutes))
	return stats
}

// FormatDuration renders milliseconds as "1h 2m 3s", "2m 3s" or "3s".
func FormatDuration(ms int64) string {
	total := ms / 1000
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, total%3600/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
