package subtitle

import "golang.org/x/text/language"

// Field names an editable attribute of a cue
type Field string

const (
	FieldStartTime Field = "start_time"
	FieldEndTime   Field = "end_time"
	FieldText      Field = "text"
)

// Valid reports whether f names an editable cue attribute
func (f Field) Valid() bool {
	switch f {
	case FieldStartTime, FieldEndTime, FieldText:
		return true
	}
	return false
}

// Cue represents a single subtitle entry
type Cue struct {
	ID        int    `json:"id"`
	StartTime string `json:"start_time"` // HH:MM:SS,mmm
	EndTime   string `json:"end_time"`   // HH:MM:SS,mmm
	Text      string `json:"text"`
}

// Cues is an ordered cue sequence.
// Values are treated as immutable snapshots: every edit builds a new slice.
type Cues []Cue

// Clone returns an independent copy of the sequence
func (c Cues) Clone() Cues {
	if c == nil {
		return Cues{}
	}
	ret := make(Cues, len(c))
	copy(ret, c)
	return ret
}

// File represents a subtitle file read from disk
type File struct {
	Cues     Cues
	Language language.Tag
	Format   string // e.g. SRT
	Path     string
}
