package cli

import (
	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

var (
	verbose  bool
	logLevel string
	envFile  string
)

var rootCmd = &cobra.Command{
	Use:   "subtitle-studio",
	Short: "Edit, re-time and sync SRT subtitles",
	Long: `subtitle-studio is a subtitle editing engine.

It serves an editing API with autosave and remote sync, edits a single
SRT file in the terminal, and rewrites SRT files in batch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		log.InitLogger(resolveLevel(logLevel, verbose))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.PersistentFlags().
		StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
}

func resolveLevel(flagLevel string, verbose bool) log.LogLevel {
	if verbose {
		return log.LevelDebug
	}
	if flagLevel != "" {
		return log.ParseLevel(flagLevel)
	}
	return log.ParseLevel(config.LogLevelFromEnv())
}

// loadConfig reads the environment plus the runtime settings file, and
// switches logging to the configured file when one is set.
func loadConfig(opts ...config.Option) (*config.Config, func(), error) {
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, nil, err
	}

	if settings, err := config.LoadRuntimeSettingsFile(cfg.SettingsFile()); err == nil {
		config.WithRuntimeSettings(settings)(cfg)
	}

	cleanup := func() {}
	if cfg.Log.File != "" {
		fl, err := log.NewFileLogger(cfg.Log.File, resolveLevel(logLevel, verbose))
		if err != nil {
			return nil, nil, err
		}
		log.SetLogger(fl.Logger)
		cleanup = func() { _ = fl.Close() }
	}
	return cfg, cleanup, nil
}
