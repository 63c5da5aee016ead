package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/jobs"
	"github.com/MimeLyc/subtitle-studio/internal/persistence"
	"github.com/MimeLyc/subtitle-studio/internal/service"
)

const maxImportBytes = 10 << 20

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

type projectLister interface {
	ListProjects(ctx context.Context) ([]persistence.Project, error)
}

type Server struct {
	workspace *service.Workspace
	queue     *jobs.Queue
	settings  runtimeSettingsStore
	apply     runtimeSettingsApplier
	projects  projectLister

	corsOrigins    []string
	streamInterval time.Duration

	router chi.Router
	server *http.Server
}

type Option func(*Server)

func WithSyncQueue(queue *jobs.Queue) Option {
	return func(s *Server) {
		s.queue = queue
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithProjectLister(projects projectLister) Option {
	return func(s *Server) {
		s.projects = projects
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithStreamInterval sets how often the state stream polls for changes.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(workspace *service.Workspace, opts ...Option) *Server {
	s := &Server{
		workspace:      workspace,
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(s.corsOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/schedule", s.handleSchedule)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)

		r.Get("/projects", s.handleListProjects)
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetState)
			r.Get("/cues", s.handleGetCues)
			r.Put("/cues", s.handleReplaceCues)
			r.Post("/cues", s.handleAddCue)
			r.Patch("/cues/{cueID}", s.handleUpdateCue)
			r.Delete("/cues/{cueID}", s.handleDeleteCue)
			r.Post("/cues/{cueID}/split", s.handleSplitCue)
			r.Post("/cues/{cueID}/merge", s.handleMergeCue)
			r.Post("/rechunk", s.handleRechunk)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/reset", s.handleReset)
			r.Post("/import", s.handleImport)
			r.Get("/export", s.handleExport)
			r.Get("/active", s.handleActive)
			r.Get("/stats", s.handleStats)
			r.Post("/shortcut", s.handleShortcut)
			r.Post("/save", s.handleSave)
			r.Get("/stream", s.handleStream)
		})
	})

	s.router = r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
