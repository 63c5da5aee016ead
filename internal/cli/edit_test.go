package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/editor"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
)

func TestSeedSession(t *testing.T) {
	cached := subtitle.Cues{{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Text: "cached edit"}}
	fromFile := subtitle.Cues{{ID: 1, StartTime: "00:00:01,000", EndTime: "00:00:02,000", Text: "file text"}}

	tests := []struct {
		name       string
		source     service.Source
		restore    bool
		wantText   string
		wantNotice bool
	}{
		{name: "fresh file", source: service.SourceEmpty, wantText: "file text"},
		{name: "restore from cache", source: service.SourceCache, restore: true, wantText: "cached edit"},
		{name: "cache ignored", source: service.SourceCache, wantText: "file text", wantNotice: true},
		{name: "restore without cache", source: service.SourceEmpty, restore: true, wantText: "file text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := service.NewSession(1, editor.Policy{Pro: true})
			session.Hydrate(cached, tt.source)

			notice := seedSession(session, tt.source, fromFile, tt.restore)
			assert.Equal(t, tt.wantText, session.Cues()[0].Text)
			if tt.wantNotice {
				assert.Contains(t, notice, "--restore")
			} else {
				assert.Empty(t, notice)
			}
		})
	}
}

func TestRedirectLogs(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{CacheDir: dir}}

	prev := log.GetLogger()
	restore, err := redirectLogs(cfg)
	require.NoError(t, err)
	log.Info("autosaved while editing")
	restore()

	assert.Same(t, prev, log.GetLogger())
	data, err := os.ReadFile(filepath.Join(dir, "edit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "autosaved while editing")
}

func TestRedirectLogs_KeepsConfiguredFile(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{File: filepath.Join(t.TempDir(), "studio.log")}}

	prev := log.GetLogger()
	restore, err := redirectLogs(cfg)
	require.NoError(t, err)
	assert.Same(t, prev, log.GetLogger())
	restore()
}
