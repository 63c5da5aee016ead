package editor

import "github.com/MimeLyc/subtitle-studio/internal/subtitle"

// ResolveActiveCue returns the id of the first cue whose inclusive
// [start, end] interval contains seconds.
func ResolveActiveCue(cues subtitle.Cues, seconds float64) (int, bool) {
	for _, c := range cues {
		if seconds >= subtitle.TimeToSeconds(c.StartTime) && seconds <= subtitle.TimeToSeconds(c.EndTime) {
			return c.ID, true
		}
	}
	return 0, false
}

// SeekTarget is the playback position for jumping to a cue.
func SeekTarget(cue subtitle.Cue) float64 {
	return subtitle.TimeToSeconds(cue.StartTime)
}
