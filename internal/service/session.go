package service

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/history"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

// Session serialises edits to one project's cue sequence. All guards
// (capabilities, free-tier cap, argument checks) run here before a
// transform reaches the history.
type Session struct {
	projectID int64

	mu             sync.Mutex
	history        *history.History[subtitle.Cues]
	policy         editor.Policy
	revision       uint64
	cachedRevision uint64
	syncedRevision uint64
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	undoLimit int
}

// WithUndoLimit caps how many undo steps a session keeps. Zero keeps all.
func WithUndoLimit(n int) SessionOption {
	return func(o *sessionOptions) {
		o.undoLimit = n
	}
}

func NewSession(projectID int64, policy editor.Policy, opts ...SessionOption) *Session {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{
		projectID: projectID,
		history:   history.New(subtitle.Cues{}, history.WithLimit[subtitle.Cues](o.undoLimit)),
		policy:    policy,
	}
}

func (s *Session) ProjectID() int64 {
	return s.projectID
}

func (s *Session) SetPolicy(policy editor.Policy) {
	s.mu.Lock()
	s.policy = policy
	s.mu.Unlock()
}

func (s *Session) Policy() editor.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Import replaces the sequence with decoded SRT content and starts a fresh
// history. A failed decode leaves the session untouched.
func (s *Session) Import(content string) (State, error) {
	cues, err := subtitle.Parse(content)
	if err != nil {
		return s.Snapshot(), WrapError(err, ErrImport, "invalid SRT file format").
			WithContext("project", s.projectID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset(cues)
	s.bumpLocked()
	log.Info("Imported %d cues into project %d", len(cues), s.projectID)
	return s.stateLocked(), nil
}

func (s *Session) Export() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtitle.Format(s.history.Present())
}

// Language detects the dominant language of the current cues.
func (s *Session) Language() language.Tag {
	return subtitle.DetectLanguage(s.Cues())
}

// Add inserts an empty cue after afterID, or appends when hasAfter is false
// or the id is unknown.
func (s *Session) Add(afterID int, hasAfter bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policy.Check(editor.FeatureUnlimitedSubtitles, len(s.history.Present())); err != nil {
		return s.stateLocked(), Classify(err)
	}
	s.performLocked(editor.Add(afterID, hasAfter))
	return s.stateLocked(), nil
}

func (s *Session) Delete(id int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if editor.Contains(s.history.Present(), id) {
		s.performLocked(editor.Delete(id))
	}
	return s.stateLocked(), nil
}

func (s *Session) Update(id int, field subtitle.Field, value string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !field.Valid() {
		return s.stateLocked(), NewError(ErrValidation, fmt.Sprintf("unknown field %q", field))
	}
	if editor.Contains(s.history.Present(), id) {
		s.performLocked(editor.UpdateField(id, field, value))
	}
	return s.stateLocked(), nil
}

func (s *Session) Split(id int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policy.Check(editor.FeatureSplitSubtitle, 0); err != nil {
		return s.stateLocked(), Classify(err)
	}
	cue, _, ok := editor.Find(s.history.Present(), id)
	if !ok {
		return s.stateLocked(), nil
	}
	if editor.WordCount(cue.Text) <= 1 {
		return s.stateLocked(), NewError(ErrValidation, "a single-word subtitle cannot be split").
			WithContext("cue", id)
	}
	s.performLocked(editor.Split(id))
	return s.stateLocked(), nil
}

func (s *Session) Merge(id int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policy.Check(editor.FeatureMergeSubtitle, 0); err != nil {
		return s.stateLocked(), Classify(err)
	}
	present := s.history.Present()
	if len(present) < 2 || !editor.Contains(present, id) {
		return s.stateLocked(), nil
	}
	s.performLocked(editor.Merge(id))
	return s.stateLocked(), nil
}

func (s *Session) Rechunk(wordsPerChunk int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policy.Check(editor.FeatureSplitAll, 0); err != nil {
		return s.stateLocked(), Classify(err)
	}
	if wordsPerChunk <= 0 {
		return s.stateLocked(), NewError(ErrValidation, "words per subtitle must be greater than zero")
	}
	if len(s.history.Present()) == 0 {
		return s.stateLocked(), NewError(ErrValidation, "no subtitles to split")
	}
	s.performLocked(editor.Rechunk(wordsPerChunk))
	return s.stateLocked(), nil
}

func (s *Session) Undo() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.Undo() {
		s.bumpLocked()
	}
	return s.stateLocked()
}

func (s *Session) Redo() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.Redo() {
		s.bumpLocked()
	}
	return s.stateLocked()
}

// Reset replaces the sequence and drops all history.
func (s *Session) Reset(cues subtitle.Cues) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset(cues.Clone())
	s.bumpLocked()
	return s.stateLocked()
}

// Hydrate loads persisted cues as a fresh, already persisted baseline.
func (s *Session) Hydrate(cues subtitle.Cues, source Source) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset(cues.Clone())
	s.bumpLocked()
	switch source {
	case SourceRemote:
		s.cachedRevision = s.revision
		s.syncedRevision = s.revision
	case SourceCache:
		s.cachedRevision = s.revision
	}
	return s.stateLocked()
}

// Dispatch runs a keyboard command against the selected cue. Commands the
// session does not own (play, export) return the state unchanged.
func (s *Session) Dispatch(cmd editor.Command, cueID int, hasSelection bool) (State, error) {
	if cmd.NeedsSelection() && !hasSelection {
		return s.Snapshot(), nil
	}
	switch cmd {
	case editor.CommandAdd:
		return s.Add(cueID, true)
	case editor.CommandDelete:
		return s.Delete(cueID)
	case editor.CommandSplit:
		return s.Split(cueID)
	case editor.CommandMerge:
		return s.Merge(cueID)
	case editor.CommandUndo:
		return s.Undo(), nil
	case editor.CommandRedo:
		return s.Redo(), nil
	default:
		return s.Snapshot(), nil
	}
}

func (s *Session) Active(seconds float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return editor.ResolveActiveCue(s.history.Present(), seconds)
}

func (s *Session) Stats() editor.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return editor.ComputeStats(s.history.Present())
}

func (s *Session) Cues() subtitle.Cues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Present().Clone()
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// pendingCache returns the cues and revision when the local cache is behind.
func (s *Session) pendingCache() (subtitle.Cues, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision == s.cachedRevision {
		return nil, 0, false
	}
	return s.history.Present().Clone(), s.revision, true
}

func (s *Session) needsSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision != s.syncedRevision
}

func (s *Session) markCached(revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision > s.cachedRevision {
		s.cachedRevision = revision
	}
}

func (s *Session) markSynced(revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision > s.syncedRevision {
		s.syncedRevision = revision
	}
}

func (s *Session) snapshotForSync() (subtitle.Cues, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Present().Clone(), s.revision
}

func (s *Session) performLocked(t editor.Transform) {
	s.history.Perform(t)
	s.bumpLocked()
}

func (s *Session) bumpLocked() {
	s.revision++
}

func (s *Session) stateLocked() State {
	undo, redo := s.history.Depth()
	return State{
		ProjectID: s.projectID,
		Cues:      s.history.Present().Clone(),
		Revision:  s.revision,
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		UndoDepth: undo,
		RedoDepth: redo,
		Cached:    s.revision == s.cachedRevision,
		Synced:    s.revision == s.syncedRevision,
	}
}
