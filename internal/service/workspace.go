package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/jobs"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/icron"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const (
	taskAutosave = "autosave"
	taskAutosync = "autosync"
)

// Workspace owns the open sessions and keeps their persisted shadows up to
// date. In-memory sessions stay the source of truth: persistence failures
// are logged and never roll an edit back.
type Workspace struct {
	cache  LocalCache
	remote RemoteStore
	queue  *jobs.Queue
	cron   *cron.Cron

	freeCueLimit int
	undoLimit    int

	mu       sync.RWMutex
	sessions map[int64]*Session
	settings config.RuntimeSettings
	entries  map[string]cron.EntryID
	lastRun  map[string]time.Time

	group singleflight.Group
}

type WorkspaceOption func(*Workspace)

func WithLocalCache(cache LocalCache) WorkspaceOption {
	return func(w *Workspace) {
		w.cache = cache
	}
}

func WithRemoteStore(remote RemoteStore) WorkspaceOption {
	return func(w *Workspace) {
		w.remote = remote
	}
}

func WithSyncQueue(queue *jobs.Queue) WorkspaceOption {
	return func(w *Workspace) {
		w.queue = queue
	}
}

func WithCron(c *cron.Cron) WorkspaceOption {
	return func(w *Workspace) {
		w.cron = c
	}
}

func WithFreeCueLimit(limit int) WorkspaceOption {
	return func(w *Workspace) {
		w.freeCueLimit = limit
	}
}

// WithHistoryLimit caps the undo depth of every session the workspace opens.
func WithHistoryLimit(n int) WorkspaceOption {
	return func(w *Workspace) {
		w.undoLimit = n
	}
}

func NewWorkspace(settings config.RuntimeSettings, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		freeCueLimit: editor.DefaultFreeCueLimit,
		sessions:     make(map[int64]*Session),
		settings:     settings,
		entries:      make(map[string]cron.EntryID),
		lastRun:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CacheKey is the local cache key of a project.
func CacheKey(projectID int64) string {
	return jobs.ProjectKey(projectID)
}

func (w *Workspace) policyLocked() editor.Policy {
	return editor.Policy{Pro: w.settings.Pro, FreeCueLimit: w.freeCueLimit}
}

func (w *Workspace) Policy() editor.Policy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.policyLocked()
}

func (w *Workspace) Settings() config.RuntimeSettings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// Schedule registers the autosave and auto-sync tasks on the cron engine
// and starts the sync workers. The caller starts and stops the engine.
func (w *Workspace) Schedule(ctx context.Context) error {
	log.Info("Schedule workspace tasks")

	if w.queue != nil {
		w.queue.Start(w.runSyncJob)
	}
	if w.cron == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduleLocked(ctx)
}

func (w *Workspace) scheduleLocked(ctx context.Context) error {
	for name, id := range w.entries {
		w.cron.Remove(id)
		delete(w.entries, name)
	}

	autosaveID, err := w.cron.AddFunc(w.settings.AutoSaveExpr, func() {
		w.recordRun(taskAutosave)
		w.Autosave(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule autosave: %w", err)
	}
	w.entries[taskAutosave] = autosaveID

	autosyncID, err := w.cron.AddFunc(w.settings.AutoSyncExpr, func() {
		w.recordRun(taskAutosync)
		w.AutoSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule autosync: %w", err)
	}
	w.entries[taskAutosync] = autosyncID
	return nil
}

func (w *Workspace) recordRun(name string) {
	w.mu.Lock()
	w.lastRun[name] = time.Now()
	w.mu.Unlock()
}

// ApplySettings swaps runtime settings, refreshes session policies and
// reschedules periodic tasks.
func (w *Workspace) ApplySettings(ctx context.Context, next config.RuntimeSettings) error {
	if err := next.Validate(); err != nil {
		return WrapError(err, ErrConfig, "invalid runtime settings")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.settings = next
	policy := w.policyLocked()
	for _, s := range w.sessions {
		s.SetPolicy(policy)
	}
	if w.cron != nil && len(w.entries) > 0 {
		if err := w.scheduleLocked(ctx); err != nil {
			return WrapError(err, ErrConfig, "reschedule tasks")
		}
	}
	log.Info("Applied runtime settings: pro=%t auto_sync=%t words_per_chunk=%d", next.Pro, next.AutoSync, next.WordsPerChunk)
	return nil
}

// Session returns an already open session.
func (w *Workspace) Session(projectID int64) (*Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[projectID]
	return s, ok
}

// Open returns the project's session, loading it on first use from the
// remote store, then the local cache, else starting empty. Load failures
// are logged and fall through to the next source.
func (w *Workspace) Open(ctx context.Context, projectID int64) (*Session, Source, error) {
	if projectID <= 0 {
		return nil, "", NewError(ErrValidation, "project id must be positive").WithContext("project", projectID)
	}
	if s, ok := w.Session(projectID); ok {
		return s, "", nil
	}

	v, err, _ := w.group.Do(fmt.Sprintf("open:%d", projectID), func() (any, error) {
		if s, ok := w.Session(projectID); ok {
			return openResult{session: s}, nil
		}

		cues, source := w.load(ctx, projectID)
		s := NewSession(projectID, w.Policy(), WithUndoLimit(w.undoLimit))
		s.Hydrate(cues, source)

		w.mu.Lock()
		w.sessions[projectID] = s
		w.mu.Unlock()

		log.Info("Opened project %d from %s with %d cues", projectID, source, len(cues))
		return openResult{session: s, source: source}, nil
	})
	if err != nil {
		return nil, "", err
	}
	res := v.(openResult)
	return res.session, res.source, nil
}

type openResult struct {
	session *Session
	source  Source
}

func (w *Workspace) load(ctx context.Context, projectID int64) (subtitle.Cues, Source) {
	if w.remote != nil {
		cues, ok, err := w.remote.LoadRemoteCues(ctx, projectID)
		switch {
		case err != nil:
			log.Warn("Failed to load project %d from remote store: %v", projectID, err)
		case ok:
			return cues, SourceRemote
		}
	}
	if w.cache != nil {
		cues, ok, err := w.cache.LoadCachedCues(ctx, CacheKey(projectID))
		switch {
		case err != nil:
			log.Warn("Failed to load project %d from local cache: %v", projectID, err)
		case ok:
			return cues, SourceCache
		}
	}
	return subtitle.Cues{}, SourceEmpty
}

// Sessions lists open sessions ordered by project id.
func (w *Workspace) Sessions() []*Session {
	w.mu.RLock()
	ret := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		ret = append(ret, s)
	}
	w.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool { return ret[i].ProjectID() < ret[j].ProjectID() })
	return ret
}

// Import decodes content into the project and queues a remote sync.
func (w *Workspace) Import(ctx context.Context, projectID int64, content string) (State, error) {
	s, _, err := w.Open(ctx, projectID)
	if err != nil {
		return State{}, err
	}
	state, err := s.Import(content)
	if err != nil {
		return state, err
	}
	w.enqueueSync(projectID, jobs.TriggerImport)
	return state, nil
}

// Save queues a manual remote sync for the project.
func (w *Workspace) Save(ctx context.Context, projectID int64) (*jobs.SyncJob, error) {
	if w.remote == nil || w.queue == nil {
		return nil, NewError(ErrPersistence, "remote store is not configured")
	}
	if _, _, err := w.Open(ctx, projectID); err != nil {
		return nil, err
	}
	job, _ := w.queue.Enqueue(jobs.EnqueueRequest{ProjectID: projectID, Trigger: jobs.TriggerManual})
	return job, nil
}

// ResetProject clears the project's cues and history and drops its local
// cache entry.
func (w *Workspace) ResetProject(ctx context.Context, projectID int64) (State, error) {
	s, _, err := w.Open(ctx, projectID)
	if err != nil {
		return State{}, err
	}
	state := s.Reset(subtitle.Cues{})
	if d, ok := w.cache.(cacheDeleter); ok {
		if err := d.DeleteCachedCues(ctx, CacheKey(projectID)); err != nil {
			log.Warn("Failed to clear local cache of project %d: %v", projectID, err)
		} else {
			s.markCached(state.Revision)
		}
	}
	return state, nil
}

// ExportName is the download file name, suffixed with the detected
// language when one is found.
func (w *Workspace) ExportName(s *Session) string {
	name := fmt.Sprintf("project-%d.srt", s.ProjectID())
	if tag := s.Language(); tag.String() != "und" {
		name = file.WithSuffix(name, "."+tag.String())
	}
	return name
}

func (w *Workspace) enqueueSync(projectID int64, trigger jobs.Trigger) {
	if w.remote == nil || w.queue == nil {
		return
	}
	job, created := w.queue.Enqueue(jobs.EnqueueRequest{ProjectID: projectID, Trigger: trigger})
	if created {
		log.Debug("Queued %s sync %s for project %d", trigger, job.ID, projectID)
	}
}

// Autosave writes every changed, non-empty session to the local cache.
func (w *Workspace) Autosave(ctx context.Context) {
	if err := w.saveAll(ctx); err != nil {
		log.Warn("Autosave incomplete: %v", err)
	}
}

// Flush writes pending local cache entries and reports failures. It runs
// on shutdown.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.saveAll(ctx)
}

func (w *Workspace) saveAll(ctx context.Context) error {
	if w.cache == nil {
		return nil
	}
	var errs []error
	for _, s := range w.Sessions() {
		if err := w.saveSession(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *Workspace) saveSession(ctx context.Context, s *Session) error {
	key := CacheKey(s.ProjectID())
	_, err, _ := w.group.Do("cache:"+key, func() (any, error) {
		cues, revision, ok := s.pendingCache()
		if !ok || len(cues) == 0 {
			return nil, nil
		}
		if err := w.cache.SaveCachedCues(ctx, key, cues); err != nil {
			return nil, WrapError(err, ErrPersistence, "autosave failed").WithContext("project", s.ProjectID())
		}
		s.markCached(revision)
		log.Debug("Autosaved %d cues of project %d", len(cues), s.ProjectID())
		return nil, nil
	})
	return err
}

// AutoSync queues a sync for every session changed since its last sync,
// when auto-sync is enabled and allowed.
func (w *Workspace) AutoSync(_ context.Context) {
	w.mu.RLock()
	enabled := w.settings.AutoSync
	policy := w.policyLocked()
	w.mu.RUnlock()

	if !enabled || !policy.Allowed(editor.FeatureAutoSync) {
		return
	}
	for _, s := range w.Sessions() {
		if s.needsSync() {
			w.enqueueSync(s.ProjectID(), jobs.TriggerAuto)
		}
	}
}

// runSyncJob is the queue executor. A panicking store fails the job instead
// of the worker.
func (w *Workspace) runSyncJob(ctx context.Context, job *jobs.SyncJob) (count int, err error) {
	err = SafeExecute(func() error {
		var syncErr error
		count, syncErr = w.syncProject(ctx, job)
		return syncErr
	})
	if err != nil && IsErrorType(err, ErrUnknown) {
		log.Error("Sync of project %d crashed: %v", job.ProjectID, err)
		return 0, err
	}
	return count, err
}

// syncProject pushes the latest snapshot of a project to the remote store.
// Projects not open in memory are synced from their local cache entry.
func (w *Workspace) syncProject(ctx context.Context, job *jobs.SyncJob) (int, error) {
	if w.remote == nil {
		return 0, NewError(ErrPersistence, "remote store is not configured")
	}

	s, ok := w.Session(job.ProjectID)
	if !ok {
		if w.cache == nil {
			return 0, NewError(ErrNotFound, "project is not open").WithContext("project", job.ProjectID)
		}
		cues, found, err := w.cache.LoadCachedCues(ctx, CacheKey(job.ProjectID))
		if err != nil {
			return 0, WrapError(err, ErrPersistence, "load cached cues")
		}
		if !found {
			return 0, NewError(ErrNotFound, "no cues to sync").WithContext("project", job.ProjectID)
		}
		if err := w.remote.SaveRemoteCues(ctx, job.ProjectID, cues); err != nil {
			return 0, WrapError(err, ErrPersistence, "remote sync failed")
		}
		return len(cues), nil
	}

	cues, revision := s.snapshotForSync()
	if err := w.remote.SaveRemoteCues(ctx, job.ProjectID, cues); err != nil {
		log.Error("Failed to sync project %d (%s): %v", job.ProjectID, job.Trigger, err)
		return 0, WrapError(err, ErrPersistence, "remote sync failed").WithContext("project", job.ProjectID)
	}
	s.markSynced(revision)
	log.Info("Synced %d cues of project %d (%s)", len(cues), job.ProjectID, job.Trigger)
	return len(cues), nil
}

// ScheduleStatus reports the next and last runs of the periodic tasks.
func (w *Workspace) ScheduleStatus(now time.Time) ([]ScheduleStatus, error) {
	w.mu.RLock()
	settings := w.settings
	policy := w.policyLocked()
	lastSave, lastSync := w.lastRun[taskAutosave], w.lastRun[taskAutosync]
	w.mu.RUnlock()

	save, err := icron.GetTriggerInfo(settings.AutoSaveExpr, now, lastSave)
	if err != nil {
		return nil, WrapError(err, ErrConfig, "autosave schedule")
	}
	syncInfo, err := icron.GetTriggerInfo(settings.AutoSyncExpr, now, lastSync)
	if err != nil {
		return nil, WrapError(err, ErrConfig, "autosync schedule")
	}

	return []ScheduleStatus{
		{
			Name:       taskAutosave,
			Expression: save.Expression,
			Enabled:    w.cache != nil,
			Next:       save.Next,
			Last:       save.Last,
		},
		{
			Name:       taskAutosync,
			Expression: syncInfo.Expression,
			Enabled:    settings.AutoSync && policy.Allowed(editor.FeatureAutoSync) && w.remote != nil,
			Next:       syncInfo.Next,
			Last:       syncInfo.Last,
		},
	}, nil
}

// Close flushes the local cache and stops the sync workers.
func (w *Workspace) Close(ctx context.Context) error {
	err := w.Flush(ctx)
	if w.queue != nil {
		w.queue.Stop()
	}
	return err
}
