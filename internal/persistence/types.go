package persistence

import (
	"database/sql"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

// CueRow is the stored shape of a cue. The time codes are kept as written;
// the millisecond columns let the database order and filter them.
type CueRow struct {
	ProjectID int64
	Position  int
	CueID     int
	StartTime sql.NullString
	EndTime   sql.NullString
	StartMs   int64
	EndMs     int64
	Text      string
}

func toCueRow(projectID int64, position int, cue subtitle.Cue) CueRow {
	return CueRow{
		ProjectID: projectID,
		Position:  position,
		CueID:     cue.ID,
		StartTime: sql.NullString{String: cue.StartTime, Valid: true},
		EndTime:   sql.NullString{String: cue.EndTime, Valid: true},
		StartMs:   subtitle.TimeToMs(cue.StartTime),
		EndMs:     subtitle.TimeToMs(cue.EndTime),
		Text:      cue.Text,
	}
}

func (r CueRow) toCue() subtitle.Cue {
	return subtitle.Cue{
		ID:        r.CueID,
		StartTime: timeText(r.StartTime, r.StartMs),
		EndTime:   timeText(r.EndTime, r.EndMs),
		Text:      r.Text,
	}
}

// timeText prefers the stored time code and rebuilds it from milliseconds
// for rows saved before the text columns existed.
func timeText(code sql.NullString, ms int64) string {
	if code.Valid {
		return code.String
	}
	return subtitle.MsToTime(ms)
}

// Project summarises one stored cue sequence.
type Project struct {
	ID        int64     `json:"id"`
	Language  string    `json:"language"`
	CueCount  int       `json:"cue_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cacheDocument is the on-disk layout of a FileCache entry.
type cacheDocument struct {
	Key     string        `json:"key"`
	SavedAt time.Time     `json:"saved_at"`
	Cues    subtitle.Cues `json:"cues"`
}
