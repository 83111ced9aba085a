package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/gatekeeper/pkg/level"
	"golang.org/x/sync/errgroup"
)

const maxParallelDecodes = 8

// Level operations (filesystem-backed)

// ListLevels returns the level files under <dataDir>/levels sorted by name,
// which is also play order.
func (r *RedisStorage) ListLevels(ctx context.Context) ([]string, error) {
	return ListLevelFiles(r.levelsDir())
}

// LoadLevels decodes every level file in play order. Files that can't be read
// or parsed are skipped with a warning.
func (r *RedisStorage) LoadLevels(ctx context.Context) ([]level.Level, error) {
	return LoadLevelDir(ctx, r.levelsDir(), r.logger)
}

func (r *RedisStorage) levelsDir() string {
	return filepath.Join(r.dataDir, "levels")
}

// ListLevelFiles lists the .json/.yaml files in dir, sorted by name.
func ListLevelFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := level.FormatFromPath(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// LoadLevelDir decodes the level files in dir concurrently and returns them in
// file name order.
func LoadLevelDir(ctx context.Context, dir string, logger *slog.Logger) ([]level.Level, error) {
	names, err := ListLevelFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([]*level.Level, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDecodes)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			l, err := readLevelFile(path)
			if err != nil {
				logger.Warn("Skipping level file", "path", path, "error", err)
				return nil
			}
			logger.Debug("Read level file", "path", path, "name", l.Name)
			results[i] = &l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}

	levels := make([]level.Level, 0, len(results))
	for _, l := range results {
		if l != nil {
			levels = append(levels, *l)
		}
	}
	return levels, nil
}

func readLevelFile(path string) (level.Level, error) {
	format, ok := level.FormatFromPath(path)
	if !ok {
		return level.Level{}, fmt.Errorf("unsupported level file extension: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return level.Level{}, fmt.Errorf("failed to read level file: %w", err)
	}
	return level.Decode(data, format)
}

// LevelDir loads levels straight from a directory, for running without Redis.
type LevelDir struct {
	Dir    string
	Logger *slog.Logger
}

func (d LevelDir) LoadLevels(ctx context.Context) ([]level.Level, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return LoadLevelDir(ctx, d.Dir, logger)
}
