package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/jobs"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "studio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	job := &jobs.SyncJob{
		ID:        "job-1",
		ProjectID: 12,
		Trigger:   jobs.TriggerImport,
		DedupeKey: jobs.ProjectKey(12),
		Status:    jobs.StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	job.Status = jobs.StatusSuccess
	job.CueCount = 42
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, job.ID, all[0].ID)
	assert.Equal(t, int64(12), all[0].ProjectID)
	assert.Equal(t, jobs.TriggerImport, all[0].Trigger)
	assert.Equal(t, jobs.StatusSuccess, all[0].Status)
	assert.Equal(t, 42, all[0].CueCount)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	all, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_CuesRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadRemoteCues(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	cues := subtitle.Cues{
		{ID: 3, StartTime: "00:00:01,000", EndTime: "00:00:02,500", Text: "The weather is lovely this morning."},
		{ID: 1, StartTime: "00:00:02,500", EndTime: "01:00:00,001", Text: "We should go for a walk\nin the park."},
	}
	require.NoError(t, store.SaveRemoteCues(ctx, 1, cues))

	loaded, ok, err := store.LoadRemoteCues(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cues, loaded)

	project, ok, err := store.GetProject(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, project.CueCount)

	assert.Equal(t, language.English.String(), project.Language)
}

func TestSQLiteStore_KeepsTimeCodesVerbatim(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	cues := subtitle.Cues{
		{ID: 1, StartTime: "oops", EndTime: "00:00:02,000", Text: "typo"},
		{ID: 2, StartTime: "00:00:75,000", EndTime: "00:00:01,5", Text: "out of range"},
		{ID: 3, StartTime: "", EndTime: "00:00:09,000", Text: "blank start"},
	}
	require.NoError(t, store.SaveRemoteCues(ctx, 4, cues))

	loaded, ok, err := store.LoadRemoteCues(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cues, loaded)

	var startMs int64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT start_ms FROM cues WHERE project_id = ? AND position = 1`, 4).Scan(&startMs))
	assert.Equal(t, int64(75000), startMs)
}

func TestSQLiteStore_RowsWithoutTimeTextUseMilliseconds(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRemoteCues(ctx, 6, subtitle.Cues{}))
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO cues (project_id, position, cue_id, start_ms, end_ms, text) VALUES (?, ?, ?, ?, ?, ?)`,
		6, 0, 1, 1500, 4000, "legacy")
	require.NoError(t, err)

	loaded, ok, err := store.LoadRemoteCues(ctx, 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, subtitle.Cues{{ID: 1, StartTime: "00:00:01,500", EndTime: "00:00:04,000", Text: "legacy"}}, loaded)
}

func TestSQLiteStore_SaveReplacesAndEmptySequence(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRemoteCues(ctx, 5, subtitle.Cues{
		{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Text: "a"},
		{ID: 2, StartTime: "00:00:02,000", EndTime: "00:00:03,000", Text: "b"},
	}))
	require.NoError(t, store.SaveRemoteCues(ctx, 5, subtitle.Cues{}))

	loaded, ok, err := store.LoadRemoteCues(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok, "an emptied project still exists")
	assert.Empty(t, loaded)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, 0, projects[0].CueCount)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "studio.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRemoteCues(context.Background(), 9, subtitle.Cues{{ID: 1, StartTime: "00:00:00,000", EndTime: "00:00:01,000", Text: "kept"}}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	loaded, ok, err := reopened.LoadRemoteCues(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kept", loaded[0].Text)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_more.sql"))
	assert.Equal(t, 2, migrationVersion("002_cue_time_text.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
