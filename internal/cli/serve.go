package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/httpapi"
	"github.com/MimeLyc/subtitle-studio/internal/jobs"
	"github.com/MimeLyc/subtitle-studio/internal/persistence"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editing API with autosave and remote sync",
	Long: `Serve the editing API.

Projects are stored in SQLite under the data directory. Open sessions are
written to the local cache on the autosave schedule and pushed to the
store on save, on import and on the auto-sync schedule.

Examples:
  subtitle-studio serve
  subtitle-studio serve --addr :9090 --data-dir ./data`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to SERVER_ADDR or :8080)")
	serveCmd.Flags().String("data-dir", "", "Data directory (defaults to DATA_DIR)")
}

type scheduler interface {
	Schedule(ctx context.Context) error
	Close(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	opts := []config.Option{config.WithAddr(addr), config.WithLogLevel(logLevel)}
	if dataDir != "" {
		opts = append(opts, config.WithDataDir(dataDir))
	}
	cfg, cleanup, err := loadConfig(opts...)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer cleanup()

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cache, err := persistence.NewFileCache(cfg.CacheDir())
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	settingsStore, err := config.NewRuntimeSettingsStore(cfg.SettingsFile(), cfg.RuntimeSettings())
	if err != nil {
		return fmt.Errorf("runtime settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue(cfg.Sync.Workers, store)
	cronEngine := cron.New()
	workspace := service.NewWorkspace(cfg.RuntimeSettings(),
		service.WithLocalCache(cache),
		service.WithRemoteStore(store),
		service.WithSyncQueue(queue),
		service.WithCron(cronEngine),
		service.WithFreeCueLimit(cfg.Editor.FreeCueLimit),
		service.WithHistoryLimit(cfg.Editor.HistoryLimit),
	)
	settingsStore.OnChange(func(next config.RuntimeSettings) {
		log.Info("Runtime settings saved to %s", cfg.SettingsFile())
	})

	srv := httpapi.NewServer(workspace,
		httpapi.WithSyncQueue(queue),
		httpapi.WithProjectLister(store),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			return workspace.ApplySettings(ctx, next)
		}),
	)

	return runWithComponents(ctx, cfg, workspace, cronEngine, srv)
}

// runWithComponents runs the scheduler, the cron engine and the HTTP server
// until ctx is cancelled or the server fails, then shuts all of them down.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return fmt.Errorf("schedule workspace tasks: %w", err)
	}
	engine.Start()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		serveErr <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}
	select {
	case <-engine.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("Scheduled tasks still running at shutdown")
	}
	if err := sched.Close(shutdownCtx); err != nil {
		log.Error("Failed to flush sessions on shutdown: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
