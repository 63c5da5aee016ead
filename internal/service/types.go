package service

import (
	"context"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

// LocalCache is the durable local shadow of a session, written on a timer
// and on shutdown.
type LocalCache interface {
	LoadCachedCues(ctx context.Context, key string) (subtitle.Cues, bool, error)
	SaveCachedCues(ctx context.Context, key string, cues subtitle.Cues) error
}

// RemoteStore is the per-project store synced on save and on the auto-sync
// timer.
type RemoteStore interface {
	LoadRemoteCues(ctx context.Context, projectID int64) (subtitle.Cues, bool, error)
	SaveRemoteCues(ctx context.Context, projectID int64, cues subtitle.Cues) error
}

type cacheDeleter interface {
	DeleteCachedCues(ctx context.Context, key string) error
}

// State is a read-only view of a session.
type State struct {
	ProjectID int64         `json:"project_id"`
	Cues      subtitle.Cues `json:"cues"`
	Revision  uint64        `json:"revision"`
	CanUndo   bool          `json:"can_undo"`
	CanRedo   bool          `json:"can_redo"`
	UndoDepth int           `json:"undo_depth"`
	RedoDepth int           `json:"redo_depth"`
	Cached    bool          `json:"cached"`
	Synced    bool          `json:"synced"`
}

// Source tells where an opened session's cues came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceEmpty  Source = "empty"
)

// ScheduleStatus describes one periodic task for status endpoints.
type ScheduleStatus struct {
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Enabled    bool      `json:"enabled"`
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last"`
}
