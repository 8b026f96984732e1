// Disk usage source — gathers utilization of the root filesystem.
// Uses gopsutil for cross-platform disk metrics.
package sampler

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/zenmon-app/agent/internal/models"
)

// DiskSource collects root filesystem usage.
type DiskSource struct {
	root string
}

// NewDiskSource creates a disk source for the platform's root mount.
func NewDiskSource() *DiskSource {
	root := "/"
	if runtime.GOOS == "windows" {
		root = `C:\`
	}
	return &DiskSource{root: root}
}

// Name returns the source identifier.
func (s *DiskSource) Name() string { return "disk" }

// Collect gathers used-space percentage for the root mount.
func (s *DiskSource) Collect(ctx context.Context) ([]models.Metric, error) {
	usage, err := disk.UsageWithContext(ctx, s.root)
	if err != nil {
		return nil, err
	}

	return []models.Metric{{
		Name:      models.MetricDiskUsage,
		Unit:      "%",
		Value:     usage.UsedPercent,
		Timestamp: time.Now().UTC(),
	}}, nil
}

// Available returns true — disk metrics are available on all platforms.
func (s *DiskSource) Available() bool { return true }
