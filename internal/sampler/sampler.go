// Package sampler defines the Source interface and provides
// implementations for system and directory metric sources.
package sampler

import (
	"context"

	"github.com/zenmon-app/agent/internal/models"
)

// Source is the interface that all metric sources must implement.
// Each source produces zero or more metrics per collection.
type Source interface {
	// Name returns the unique identifier for this source.
	Name() string

	// Collect gathers the metric data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) ([]models.Metric, error)

	// Available checks if this source can run on the current platform.
	// Sources that return false will not be registered.
	Available() bool
}
