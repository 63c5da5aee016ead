package cli

import (
	"context"
	"fmt"
	"hash/fnv"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/persistence"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/internal/tui"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

var editCmd = &cobra.Command{
	Use:   "edit [subtitle_file]",
	Short: "Edit an SRT file in the terminal",
	Long: `Edit an SRT file in the terminal.

Edits are autosaved to the local cache on the autosave schedule and on
exit. Pass --restore to continue from the cached copy instead of the file.

Examples:
  subtitle-studio edit episode.srt
  subtitle-studio edit episode.srt -o episode.fixed.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringP("output", "o", "", "Export path (defaults to the input file)")
	editCmd.Flags().Bool("restore", false, "Restore unsaved edits from the local cache")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	output, _ := cmd.Flags().GetString("output")
	restore, _ := cmd.Flags().GetBool("restore")
	if output == "" {
		output = path
	}

	cfg, cleanup, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer cleanup()

	srt, err := subtitle.ReadFile(path)
	if err != nil {
		return err
	}

	cache, err := persistence.NewFileCache(cfg.CacheDir())
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := cron.New()
	workspace := service.NewWorkspace(cfg.RuntimeSettings(),
		service.WithLocalCache(cache),
		service.WithCron(engine),
		service.WithFreeCueLimit(cfg.Editor.FreeCueLimit),
		service.WithHistoryLimit(cfg.Editor.HistoryLimit),
	)

	projectID, err := fileProjectID(path)
	if err != nil {
		return err
	}
	session, source, err := workspace.Open(ctx, projectID)
	if err != nil {
		return err
	}
	notice := seedSession(session, source, srt.Cues, restore)
	if notice != "" {
		log.Warn("%s: %s", path, notice)
	} else if source == service.SourceCache {
		log.Info("Restored %d cues of %s from the local cache", len(session.Cues()), path)
	}

	if err := workspace.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	defer func() {
		<-engine.Stop().Done()
		if err := workspace.Close(context.Background()); err != nil {
			log.Error("Failed to save on exit: %v", err)
		}
	}()

	model := tui.New(session, tui.Options{
		Title:         filepath.Base(path),
		OutputPath:    output,
		WordsPerChunk: cfg.Editor.WordsPerChunk,
		Notice:        notice,
		Flush:         workspace.Flush,
	})

	restoreLogs, err := redirectLogs(cfg)
	if err != nil {
		return err
	}
	err = tui.Run(ctx, model)
	restoreLogs()
	return err
}

// seedSession loads the file into the session unless restore asks to keep
// the cached copy. The returned notice is non-empty when cached edits exist
// and will be overwritten by the next autosave.
func seedSession(session *service.Session, source service.Source, fileCues subtitle.Cues, restore bool) string {
	if source == service.SourceCache && restore {
		return ""
	}
	session.Hydrate(fileCues, service.SourceEmpty)
	if source == service.SourceCache {
		return "unsaved cached edits will be overwritten; quit now and rerun with --restore to keep them"
	}
	return ""
}

// redirectLogs moves logging off the terminal while the editor owns the
// screen. Without LOG_FILE, entries go to edit.log in the cache directory.
func redirectLogs(cfg *config.Config) (func(), error) {
	if cfg.Log.File != "" {
		return func() {}, nil
	}
	fl, err := log.NewFileLogger(filepath.Join(cfg.CacheDir(), "edit.log"), resolveLevel(logLevel, verbose))
	if err != nil {
		return nil, fmt.Errorf("open edit log: %w", err)
	}
	prev := log.GetLogger()
	log.SetLogger(fl.Logger)
	return func() {
		log.SetLogger(prev)
		_ = fl.Close()
	}, nil
}

// fileProjectID derives a stable positive project id from the absolute file
// path so each file keeps its own cache entry.
func fileProjectID(path string) (int64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(abs))
	id := int64(h.Sum64() & (1<<63 - 1))
	if id == 0 {
		id = 1
	}
	return id, nil
}
