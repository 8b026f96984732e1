// Registry for metric sources. Sources are registered at startup; the
// run-loop asks the registry for a full batch each cycle. Sources run
// sequentially — the agent has a single flow of control and no other
// work competing for it.
package sampler

import (
	"context"

	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/models"
)

// Registry manages all registered sources and assembles collection batches.
type Registry struct {
	sources []Source
	hostID  int
	logger  *zap.Logger
}

// NewRegistry creates a new source registry. Every metric collected
// through it is stamped with the given host ID.
func NewRegistry(hostID int, logger *zap.Logger) *Registry {
	return &Registry{
		sources: make([]Source, 0),
		hostID:  hostID,
		logger:  logger,
	}
}

// Register adds a source if it's available on the current platform.
// Unavailable sources are logged and skipped.
func (r *Registry) Register(s Source) {
	if s.Available() {
		r.sources = append(r.sources, s)
		r.logger.Info("Registered metric source", zap.String("name", s.Name()))
	} else {
		r.logger.Warn("Metric source not available, skipping", zap.String("name", s.Name()))
	}
}

// CollectAll runs all registered sources in order and returns the merged
// metrics. A failing source is logged as a warning and omitted; it never
// aborts the rest of the batch.
func (r *Registry) CollectAll(ctx context.Context) []models.Metric {
	var metrics []models.Metric

	for _, s := range r.sources {
		collected, err := s.Collect(ctx)
		if err != nil {
			r.logger.Warn("Metric collection failed",
				zap.String("source", s.Name()),
				zap.Error(err))
			continue
		}
		for i := range collected {
			collected[i].HostID = r.hostID
		}
		metrics = append(metrics, collected...)
	}

	return metrics
}

// Sources returns a copy of all registered sources.
func (r *Registry) Sources() []Source {
	result := make([]Source, len(r.sources))
	copy(result, r.sources)
	return result
}
