package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileCache keeps one JSON document per key in a directory. It is the
// durable local shadow of in-memory edits.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(key string) string {
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(c.dir, name+".json")
}

func (c *FileCache) LoadCachedCues(ctx context.Context, key string) (subtitle.Cues, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache %s: %w", key, err)
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	if doc.Cues == nil {
		doc.Cues = subtitle.Cues{}
	}
	return doc.Cues, true, nil
}

func (c *FileCache) SaveCachedCues(ctx context.Context, key string, cues subtitle.Cues) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(cacheDocument{
		Key:     key,
		SavedAt: time.Now().UTC(),
		Cues:    cues.Clone(),
	})
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	return file.WriteAtomic(c.path(key), data, 0o644)
}

// DeleteCachedCues drops the entry for key; missing entries are not an error.
func (c *FileCache) DeleteCachedCues(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cache %s: %w", key, err)
	}
	return nil
}
