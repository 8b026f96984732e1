// Directory statistics source — gathers total size and file count for a
// configured list of paths. The list has a local default and may be
// replaced at runtime when the API provides a monitored-directories
// override.
package sampler

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/models"
)

// DirStatsSource walks each monitored path and reports its total size in
// megabytes plus its file count. An unreadable path is skipped with a
// warning; the remaining paths are still reported.
type DirStatsSource struct {
	paths  []string
	logger *zap.Logger
}

// NewDirStatsSource creates a directory statistics source for the given paths.
func NewDirStatsSource(paths []string, logger *zap.Logger) *DirStatsSource {
	return &DirStatsSource{
		paths:  append([]string(nil), paths...),
		logger: logger,
	}
}

// Name returns the source identifier.
func (s *DirStatsSource) Name() string { return "dirstats" }

// SetPaths replaces the monitored path list. Called by the run-loop when
// the API supplies an updated list; the run-loop is the only writer.
func (s *DirStatsSource) SetPaths(paths []string) {
	s.paths = append([]string(nil), paths...)
}

// Paths returns a copy of the current monitored path list.
func (s *DirStatsSource) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Collect walks every monitored path and produces two metrics per path:
// total size (MB) and file count. A failure on one path never aborts
// the others.
func (s *DirStatsSource) Collect(ctx context.Context) ([]models.Metric, error) {
	var metrics []models.Metric

	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return metrics, err
		}

		sizeBytes, fileCount, err := walkDir(ctx, path)
		if err != nil {
			s.logger.Warn("Skipping unreadable directory",
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		now := time.Now().UTC()
		metrics = append(metrics,
			models.Metric{
				Name:      models.MetricDirectorySize,
				Unit:      "MB",
				Value:     float64(sizeBytes) / (1024 * 1024),
				Timestamp: now,
				Path:      path,
			},
			models.Metric{
				Name:      models.MetricDirectoryFileCount,
				Unit:      "files",
				Value:     float64(fileCount),
				Timestamp: now,
				Path:      path,
			},
		)
	}

	return metrics, nil
}

// Available returns true — directory walking works everywhere.
func (s *DirStatsSource) Available() bool { return true }

// walkDir totals file sizes and counts regular files under root.
// Unreadable subtrees inside an otherwise readable root are skipped;
// an unreadable root itself is an error.
func walkDir(ctx context.Context, root string) (sizeBytes int64, fileCount int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Unreadable entry below the root: skip and keep walking.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		sizeBytes += info.Size()
		fileCount++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return sizeBytes, fileCount, nil
}
