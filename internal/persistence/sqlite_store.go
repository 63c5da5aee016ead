package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/jobs"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is the remote cue store and the sync job store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// LoadRemoteCues returns the stored sequence for a project. ok is false when
// the project has never been saved.
func (s *SQLiteStore) LoadRemoteCues(ctx context.Context, projectID int64) (subtitle.Cues, bool, error) {
	if _, ok, err := s.GetProject(ctx, projectID); err != nil || !ok {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT project_id, position, cue_id, start_time, end_time, start_ms, end_ms, text
		 FROM cues
		 WHERE project_id = ?
		 ORDER BY position ASC`,
		projectID,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	ret := make(subtitle.Cues, 0)
	for rows.Next() {
		var row CueRow
		if err := rows.Scan(&row.ProjectID, &row.Position, &row.CueID, &row.StartTime, &row.EndTime, &row.StartMs, &row.EndMs, &row.Text); err != nil {
			return nil, false, err
		}
		ret = append(ret, row.toCue())
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return ret, true, nil
}

// SaveRemoteCues replaces a project's cues in one transaction. The last
// writer wins.
func (s *SQLiteStore) SaveRemoteCues(ctx context.Context, projectID int64, cues subtitle.Cues) (err error) {
	now := time.Now().UTC()
	lang := subtitle.DetectLanguage(cues)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO projects (id, language, cue_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			language=excluded.language,
			cue_count=excluded.cue_count,
			updated_at=excluded.updated_at`,
		projectID,
		lang.String(),
		len(cues),
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cues WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear cues: %w", err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO cues (project_id, position, cue_id, start_time, end_time, start_ms, end_ms, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, cue := range cues {
		row := toCueRow(projectID, i, cue)
		if _, err = stmt.ExecContext(ctx, row.ProjectID, row.Position, row.CueID, row.StartTime, row.EndTime, row.StartMs, row.EndMs, row.Text); err != nil {
			return fmt.Errorf("insert cue %d: %w", cue.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetProject(ctx context.Context, projectID int64) (Project, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, language, cue_count, created_at, updated_at FROM projects WHERE id = ?`,
		projectID,
	)
	var p Project
	if err := row.Scan(&p.ID, &p.Language, &p.CueCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, false, nil
		}
		return Project{}, false, err
	}
	return p, true, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, language, cue_count, created_at, updated_at FROM projects ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Language, &p.CueCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.SyncJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, project_id, trigger_kind, dedupe_key, status, error, cue_count, created_at, updated_at
		 FROM sync_jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.SyncJob, 0)
	for rows.Next() {
		var item jobs.SyncJob
		var trigger, status string
		if err := rows.Scan(
			&item.ID,
			&item.ProjectID,
			&trigger,
			&item.DedupeKey,
			&status,
			&item.Error,
			&item.CueCount,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Trigger = jobs.Trigger(trigger)
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.SyncJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_jobs (
			id, project_id, trigger_kind, dedupe_key, status, error, cue_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id=excluded.project_id,
			trigger_kind=excluded.trigger_kind,
			dedupe_key=excluded.dedupe_key,
			status=excluded.status,
			error=excluded.error,
			cue_count=excluded.cue_count,
			updated_at=excluded.updated_at`,
		job.ID,
		job.ProjectID,
		string(job.Trigger),
		job.DedupeKey,
		string(job.Status),
		job.Error,
		job.CueCount,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}
