package jobs

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the job has finished.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Trigger records what asked for the sync.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
	TriggerImport Trigger = "import"
)

type EnqueueRequest struct {
	ProjectID int64
	Trigger   Trigger
	DedupeKey string
}

// ProjectKey is the dedupe key for syncing one project. A pending sync
// absorbs later requests because the executor reads the latest snapshot.
func ProjectKey(projectID int64) string {
	return fmt.Sprintf("project:%d", projectID)
}

// SyncJob pushes one project's cues to the remote store.
type SyncJob struct {
	ID        string    `json:"id"`
	ProjectID int64     `json:"project_id"`
	Trigger   Trigger   `json:"trigger"`
	DedupeKey string    `json:"dedupe_key"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CueCount  int       `json:"cue_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
