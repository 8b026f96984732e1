// RAM usage source — gathers memory utilization percentage.
// Uses gopsutil for cross-platform memory metrics.
package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/zenmon-app/agent/internal/models"
)

// MemorySource collects RAM usage.
type MemorySource struct{}

// NewMemorySource creates a new memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Name returns the source identifier.
func (s *MemorySource) Name() string { return "memory" }

// Collect gathers memory utilization as a percentage of total RAM.
func (s *MemorySource) Collect(ctx context.Context) ([]models.Metric, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return []models.Metric{{
		Name:      models.MetricMemoryUsage,
		Unit:      "%",
		Value:     v.UsedPercent,
		Timestamp: time.Now().UTC(),
	}}, nil
}

// Available returns true — memory metrics are available on all platforms.
func (s *MemorySource) Available() bool { return true }
