package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/MimeLyc/subtitle-studio/pkg/file"
)

// RuntimeSettings are the values that can change while the server runs.
type RuntimeSettings struct {
	Pro           bool   `yaml:"pro" json:"pro"`
	AutoSync      bool   `yaml:"auto_sync" json:"auto_sync"`
	WordsPerChunk int    `yaml:"words_per_chunk" json:"words_per_chunk"`
	AutoSaveExpr  string `yaml:"autosave_expr" json:"autosave_expr"`
	AutoSyncExpr  string `yaml:"autosync_expr" json:"autosync_expr"`
}

func (s RuntimeSettings) Validate() error {
	if s.WordsPerChunk <= 0 {
		return fmt.Errorf("words_per_chunk must be greater than zero")
	}
	if strings.TrimSpace(s.AutoSaveExpr) == "" {
		return fmt.Errorf("autosave_expr is required")
	}
	if _, err := cron.ParseStandard(s.AutoSaveExpr); err != nil {
		return fmt.Errorf("invalid autosave_expr: %w", err)
	}
	if strings.TrimSpace(s.AutoSyncExpr) == "" {
		return fmt.Errorf("autosync_expr is required")
	}
	if _, err := cron.ParseStandard(s.AutoSyncExpr); err != nil {
		return fmt.Errorf("invalid autosync_expr: %w", err)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		Pro:           c.Editor.Pro,
		AutoSync:      c.Sync.AutoSyncEnabled,
		WordsPerChunk: c.Editor.WordsPerChunk,
		AutoSaveExpr:  c.Sync.AutoSaveExpr,
		AutoSyncExpr:  c.Sync.AutoSyncExpr,
	}
}

// WithRuntimeSettings overlays a settings file on top of env values. Zero
// values leave the env value in place, except the booleans which always win.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		c.Editor.Pro = settings.Pro
		c.Sync.AutoSyncEnabled = settings.AutoSync
		if settings.WordsPerChunk > 0 {
			c.Editor.WordsPerChunk = settings.WordsPerChunk
		}
		if strings.TrimSpace(settings.AutoSaveExpr) != "" {
			c.Sync.AutoSaveExpr = settings.AutoSaveExpr
		}
		if strings.TrimSpace(settings.AutoSyncExpr) != "" {
			c.Sync.AutoSyncExpr = settings.AutoSyncExpr
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	content, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return file.WriteAtomic(path, content, 0o600)
}

type RuntimeSettingsStore struct {
	path string

	mu        sync.RWMutex
	current   RuntimeSettings
	listeners []func(RuntimeSettings)
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// OnChange registers fn to run after every successful update.
func (s *RuntimeSettingsStore) OnChange(fn func(RuntimeSettings)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	listeners := append([]func(RuntimeSettings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}
