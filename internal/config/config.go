package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/subtitle-studio/internal/editor"
)

// Config holds all application configuration.
// Values come from environment variables (optionally seeded from a .env
// file) and are then overridden by Option funcs.
//
// Environment Variables:
// HTTP:
// - SERVER_ADDR: listen address (default: :8080)
// - CORS_ORIGINS: comma separated allowed origins (default: *)
//
// Storage:
// - DATA_DIR: base directory for state (default: /app/data)
// - DB_PATH: sqlite database (default: $DATA_DIR/studio.db)
// - CACHE_DIR: local autosave cache (default: $DATA_DIR/cache)
// - SETTINGS_FILE: runtime settings yaml (default: $DATA_DIR/settings.yaml)
//
// Editor:
// - EDITOR_PRO: enables gated features (default: false)
// - FREE_CUE_LIMIT: cue cap without pro (default: 10)
// - WORDS_PER_CHUNK: default bulk re-chunk size (default: 5)
// - HISTORY_LIMIT: undo steps kept per session, 0 keeps all (default: 0)
//
// Sync:
// - AUTOSAVE_EXPR: local cache schedule (default: @every 30s)
// - AUTOSYNC_ENABLED: periodic remote sync (default: true)
// - AUTOSYNC_EXPR: remote sync schedule (default: @every 2m)
// - SYNC_WORKERS: sync queue workers (default: 1)
//
// Logging:
// - LOG_LEVEL: debug|info|warn|error (default: info)
// - LOG_FILE: write logs to this file instead of stdout
type Config struct {
	HTTP    HTTPConfig    `json:"http"`
	Storage StorageConfig `json:"storage"`
	Editor  EditorConfig  `json:"editor"`
	Sync    SyncConfig    `json:"sync"`
	Log     LogConfig     `json:"log"`
}

type HTTPConfig struct {
	Addr        string   `json:"addr"`
	CORSOrigins []string `json:"cors_origins"`
}

type StorageConfig struct {
	DataDir      string `json:"data_dir"`
	DBPath       string `json:"db_path"`
	CacheDir     string `json:"cache_dir"`
	SettingsFile string `json:"settings_file"`
}

type EditorConfig struct {
	Pro           bool `json:"pro"`
	FreeCueLimit  int  `json:"free_cue_limit"`
	WordsPerChunk int  `json:"words_per_chunk"`
	HistoryLimit  int  `json:"history_limit"`
}

// Policy returns the capability policy the editor sessions enforce.
func (c EditorConfig) Policy() editor.Policy {
	return editor.Policy{Pro: c.Pro, FreeCueLimit: c.FreeCueLimit}
}

type SyncConfig struct {
	AutoSaveExpr    string `json:"autosave_expr"`
	AutoSyncEnabled bool   `json:"autosync_enabled"`
	AutoSyncExpr    string `json:"autosync_expr"`
	Workers         int    `json:"workers"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

const (
	DefaultDataDir       = "/app/data"
	DefaultAutoSaveExpr  = "@every 30s"
	DefaultAutoSyncExpr  = "@every 2m"
	DefaultWordsPerChunk = 5
)

// Option is a function type for configuring Config
type Option func(*Config)

func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.Storage.DataDir = dir
	}
}

func WithAddr(addr string) Option {
	return func(c *Config) {
		if strings.TrimSpace(addr) != "" {
			c.HTTP.Addr = addr
		}
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) {
		if strings.TrimSpace(level) != "" {
			c.Log.Level = level
		}
	}
}

// LoadDotEnv seeds the environment from the given files. Missing files are
// skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			Addr:        getEnvString("SERVER_ADDR", ":8080"),
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			DataDir:      getEnvString("DATA_DIR", DefaultDataDir),
			DBPath:       getEnvString("DB_PATH", ""),
			CacheDir:     getEnvString("CACHE_DIR", ""),
			SettingsFile: getEnvString("SETTINGS_FILE", ""),
		},
		Editor: EditorConfig{
			Pro:           getEnvBool("EDITOR_PRO", false),
			FreeCueLimit:  getEnvInt("FREE_CUE_LIMIT", editor.DefaultFreeCueLimit),
			WordsPerChunk: getEnvInt("WORDS_PER_CHUNK", DefaultWordsPerChunk),
			HistoryLimit:  getEnvInt("HISTORY_LIMIT", 0),
		},
		Sync: SyncConfig{
			AutoSaveExpr:    getEnvString("AUTOSAVE_EXPR", DefaultAutoSaveExpr),
			AutoSyncEnabled: getEnvBool("AUTOSYNC_ENABLED", true),
			AutoSyncExpr:    getEnvString("AUTOSYNC_EXPR", DefaultAutoSyncExpr),
			Workers:         getEnvInt("SYNC_WORKERS", 1),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LogLevelFromEnv is the LOG_LEVEL value, for logging set up before the
// rest of the configuration is read.
func LogLevelFromEnv() string {
	return getEnvString("LOG_LEVEL", "info")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Editor.FreeCueLimit <= 0 {
		return fmt.Errorf("FREE_CUE_LIMIT must be positive")
	}
	if c.Editor.WordsPerChunk <= 0 {
		return fmt.Errorf("WORDS_PER_CHUNK must be positive")
	}
	if c.Editor.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative")
	}
	if _, err := cron.ParseStandard(c.Sync.AutoSaveExpr); err != nil {
		return fmt.Errorf("invalid AUTOSAVE_EXPR: %w", err)
	}
	if _, err := cron.ParseStandard(c.Sync.AutoSyncExpr); err != nil {
		return fmt.Errorf("invalid AUTOSYNC_EXPR: %w", err)
	}
	return nil
}

func (c *Config) DBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.Storage.DataDir, "studio.db")
}

func (c *Config) CacheDir() string {
	if c.Storage.CacheDir != "" {
		return c.Storage.CacheDir
	}
	return filepath.Join(c.Storage.DataDir, "cache")
}

func (c *Config) SettingsFile() string {
	if c.Storage.SettingsFile != "" {
		return c.Storage.SettingsFile
	}
	return filepath.Join(c.Storage.DataDir, "settings.yaml")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	ret := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	if len(ret) == 0 {
		return defaultValue
	}
	return ret
}
