package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ZeroTime = "00:00:00,000"

	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// TimeToMs parses a HH:MM:SS,mmm time code into milliseconds.
// Fields are not range checked; unparsable fields count as zero.
func TimeToMs(code string) int64 {
	hms, millis, _ := strings.Cut(strings.TrimSpace(code), ",")

	parts := strings.Split(hms, ":")
	var h, m, s int64
	switch len(parts) {
	case 1:
		s = atoi(parts[0])
	case 2:
		m, s = atoi(parts[0]), atoi(parts[1])
	default:
		h, m, s = atoi(parts[0]), atoi(parts[1]), atoi(parts[2])
	}

	return h*msPerHour + m*msPerMinute + s*msPerSecond + atoi(millis)
}

// MsToTime formats milliseconds as HH:MM:SS,mmm. Negative values clamp to zero.
func MsToTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / msPerHour
	minutes := ms % msPerHour / msPerMinute
	seconds := ms % msPerMinute / msPerSecond
	millis := ms % msPerSecond

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// CalculateMidTime returns the time code halfway between start and end, floored to the millisecond
func CalculateMidTime(start, end string) string {
	sum := TimeToMs(start) + TimeToMs(end)
	mid := sum / 2
	if sum < 0 && sum%2 != 0 {
		mid--
	}
	return MsToTime(mid)
}

// IncrementTime shifts a time code by the given number of seconds
func IncrementTime(code string, seconds float64) string {
	return MsToTime(TimeToMs(code) + int64(math.Round(seconds*msPerSecond)))
}

// TimeToSeconds converts a time code to seconds, the unit used by video players
func TimeToSeconds(code string) float64 {
	return float64(TimeToMs(code)) / msPerSecond
}

func atoi(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
