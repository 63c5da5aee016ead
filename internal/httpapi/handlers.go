package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"ok":       true,
		"sessions": len(s.workspace.Sessions()),
	}
	if s.queue != nil {
		resp["pending_jobs"] = s.queue.Pending()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.workspace.ScheduleStatus(time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeJSON(w, http.StatusOK, s.workspace.Settings())
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.apply != nil {
		if err := s.apply(saved); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, "sync queue is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.queue.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, "sync queue is not configured")
		return
	}
	job, ok := s.queue.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type projectSummary struct {
	ID        int64     `json:"id"`
	Open      bool      `json:"open"`
	CueCount  int       `json:"cue_count"`
	Language  string    `json:"language,omitempty"`
	Revision  uint64    `json:"revision,omitempty"`
	Synced    bool      `json:"synced"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// handleListProjects merges stored projects with sessions that only live in
// memory so far.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	byID := make(map[int64]*projectSummary)

	if s.projects != nil {
		stored, err := s.projects.ListProjects(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, p := range stored {
			byID[p.ID] = &projectSummary{
				ID:        p.ID,
				CueCount:  p.CueCount,
				Language:  p.Language,
				Synced:    true,
				UpdatedAt: p.UpdatedAt,
			}
		}
	}

	for _, session := range s.workspace.Sessions() {
		state := session.Snapshot()
		summary, ok := byID[state.ProjectID]
		if !ok {
			summary = &projectSummary{ID: state.ProjectID}
			byID[state.ProjectID] = summary
		}
		summary.Open = true
		summary.CueCount = len(state.Cues)
		summary.Revision = state.Revision
		summary.Synced = state.Synced
	}

	ret := make([]projectSummary, 0, len(byID))
	for _, summary := range byID {
		ret = append(ret, *summary)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return session.Snapshot(), nil
	})
}

func (s *Server) handleGetCues(w http.ResponseWriter, r *http.Request) {
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Cues())
}

type replaceCuesRequest struct {
	Cues subtitle.Cues `json:"cues"`
}

func (s *Server) handleReplaceCues(w http.ResponseWriter, r *http.Request) {
	var req replaceCuesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		if req.Cues == nil {
			req.Cues = subtitle.Cues{}
		}
		return session.Reset(req.Cues), nil
	})
}

type addCueRequest struct {
	AfterID *int `json:"after_id"`
}

func (s *Server) handleAddCue(w http.ResponseWriter, r *http.Request) {
	var req addCueRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		if req.AfterID == nil {
			return session.Add(0, false)
		}
		return session.Add(*req.AfterID, true)
	})
}

type updateCueRequest struct {
	Field subtitle.Field `json:"field"`
	Value string         `json:"value"`
}

func (s *Server) handleUpdateCue(w http.ResponseWriter, r *http.Request) {
	cueID, ok := cueIDParam(w, r)
	if !ok {
		return
	}
	var req updateCueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return session.Update(cueID, req.Field, req.Value)
	})
}

func (s *Server) handleDeleteCue(w http.ResponseWriter, r *http.Request) {
	s.withCue(w, r, (*service.Session).Delete)
}

func (s *Server) handleSplitCue(w http.ResponseWriter, r *http.Request) {
	s.withCue(w, r, (*service.Session).Split)
}

func (s *Server) handleMergeCue(w http.ResponseWriter, r *http.Request) {
	s.withCue(w, r, (*service.Session).Merge)
}

type rechunkRequest struct {
	WordsPerChunk *int `json:"words_per_chunk"`
}

func (s *Server) handleRechunk(w http.ResponseWriter, r *http.Request) {
	var req rechunkRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	words := s.workspace.Settings().WordsPerChunk
	if req.WordsPerChunk != nil {
		words = *req.WordsPerChunk
	}
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return session.Rechunk(words)
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return session.Undo(), nil
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return session.Redo(), nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	state, err := s.workspace.ResetProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleImport takes the raw SRT file as the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "subtitle file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read request body failed")
		return
	}

	state, err := s.workspace.Import(r.Context(), projectID, string(body))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.workspace.ExportName(session)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, session.Export())
}

type activeResponse struct {
	Time  float64 `json:"t"`
	CueID *int    `json:"cue_id"`
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil || seconds < 0 {
		writeError(w, http.StatusBadRequest, "query parameter t must be a non-negative number of seconds")
		return
	}
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}

	resp := activeResponse{Time: seconds}
	if id, found := session.Active(seconds); found {
		resp.CueID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	editor.Stats
	Duration string `json:"duration"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}
	stats := session.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:    stats,
		Duration: editor.FormatDuration(stats.TotalDurationMs),
	})
}

type shortcutRequest struct {
	Keys  string `json:"keys"`
	CueID *int   `json:"cue_id"`
}

type shortcutResponse struct {
	Command editor.Command `json:"command"`
	State   service.State  `json:"state"`
}

// handleShortcut resolves a key chord against the selected cue. Commands
// that belong to the client (play, export) are echoed back for it to run.
func (s *Server) handleShortcut(w http.ResponseWriter, r *http.Request) {
	var req shortcutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}

	hasSelection := req.CueID != nil
	cueID := 0
	if hasSelection {
		cueID = *req.CueID
	}

	cmd := editor.ResolveShortcut(req.Keys, hasSelection, session.Policy().Pro)
	state, err := session.Dispatch(cmd, cueID, hasSelection)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shortcutResponse{Command: cmd, State: state})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	job, err := s.workspace.Save(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return nil, false
	}
	session, _, err := s.workspace.Open(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*service.Session) (service.State, error)) {
	session, ok := s.openSession(w, r)
	if !ok {
		return
	}
	state, err := fn(session)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) withCue(w http.ResponseWriter, r *http.Request, fn func(*service.Session, int) (service.State, error)) {
	cueID, ok := cueIDParam(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(session *service.Session) (service.State, error) {
		return fn(session, cueID)
	})
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	return id, true
}

func cueIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "cueID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cue id")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	edErr := service.Classify(err)
	writeJSON(w, statusFor(edErr.Type), map[string]any{
		"error": edErr.Message,
		"type":  edErr.Type.String(),
	})
}

func statusFor(t service.ErrorType) int {
	switch t {
	case service.ErrImport, service.ErrValidation, service.ErrConfig:
		return http.StatusBadRequest
	case service.ErrCapability:
		return http.StatusForbidden
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
