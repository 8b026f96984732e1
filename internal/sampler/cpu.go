// CPU usage source — gathers overall CPU utilization percentage.
// Uses gopsutil for cross-platform CPU metrics.
package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/zenmon-app/agent/internal/models"
)

// cpuSampleWindow is how long the CPU measurement blocks to compute
// an accurate utilization percentage.
const cpuSampleWindow = time.Second

// CPUSource collects overall CPU usage.
type CPUSource struct{}

// NewCPUSource creates a new CPU source.
func NewCPUSource() *CPUSource {
	return &CPUSource{}
}

// Name returns the source identifier.
func (s *CPUSource) Name() string { return "cpu" }

// Collect gathers overall CPU usage. The measurement blocks for the
// sample window to measure utilization rather than an instantaneous value.
func (s *CPUSource) Collect(ctx context.Context) ([]models.Metric, error) {
	overall, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return nil, err
	}

	var value float64
	if len(overall) > 0 {
		value = overall[0]
	}

	return []models.Metric{{
		Name:      models.MetricCPUUsage,
		Unit:      "%",
		Value:     value,
		Timestamp: time.Now().UTC(),
	}}, nil
}

// Available returns true — CPU metrics are available on all platforms.
func (s *CPUSource) Available() bool { return true }
