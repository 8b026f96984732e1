// Package agent implements the run-loop that ties sampling,
// authentication, submission, and pacing together: ensure a session,
// collect a batch, submit it, send a heartbeat, sleep, repeat. Every
// failure is handled locally — the loop runs until its context is
// cancelled, and nothing short of startup misconfiguration stops the
// process.
package agent

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/config"
	"github.com/zenmon-app/agent/internal/models"
)

// Collector produces one cycle's metrics. Satisfied by sampler.Registry.
type Collector interface {
	CollectAll(ctx context.Context) []models.Metric
}

// Submitter pushes data to the API. Satisfied by client.Client.
type Submitter interface {
	SubmitMetrics(ctx context.Context, batch models.MetricBatch) (int, error)
	SendHeartbeat(ctx context.Context, hb models.Heartbeat) error
	FetchDirectories(ctx context.Context) ([]string, error)
}

// TokenSource ensures a valid session exists. Satisfied by session.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// DirectoryTarget receives monitored-directory overrides from the API.
// Satisfied by sampler.DirStatsSource.
type DirectoryTarget interface {
	SetPaths(paths []string)
}

// Agent is the run-loop orchestrator.
type Agent struct {
	cfg       *config.Config
	tokens    TokenSource
	submitter Submitter
	collector Collector
	dirs      DirectoryTarget
	logger    *zap.Logger
	status    *Status
	info      models.AgentInfo

	instanceID     string
	lastDirRefresh time.Time
}

// New creates the run-loop. dirs may be nil when directory monitoring is
// not configured.
func New(cfg *config.Config, version string, tokens TokenSource, submitter Submitter, collector Collector, dirs DirectoryTarget, logger *zap.Logger) *Agent {
	hostname, _ := os.Hostname()
	instanceID := uuid.NewString()
	return &Agent{
		cfg:       cfg,
		tokens:    tokens,
		submitter: submitter,
		collector: collector,
		dirs:      dirs,
		logger:    logger,
		status:    NewStatus(instanceID, cfg.API.HostID),
		info: models.AgentInfo{
			Version:  version,
			Platform: runtime.GOOS,
			Hostname: hostname,
		},
		instanceID: instanceID,
	}
}

// Status returns the shared read-only status snapshot holder. The
// diagnostics endpoint reads it from its own goroutine; the run-loop is
// the only writer.
func (a *Agent) Status() *Status {
	return a.status
}

// Run executes collection cycles until the context is cancelled.
// Sleeping between cycles is the only intentional suspension point and
// is interrupted by cancellation for a clean exit.
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info("Agent running",
		zap.Int("host_id", a.cfg.API.HostID),
		zap.String("instance_id", a.instanceID),
		zap.Duration("interval", a.cfg.Collection.Interval.Duration))

	for {
		a.cycle(ctx)

		select {
		case <-ctx.Done():
			a.logger.Info("Agent stopping")
			return
		case <-time.After(a.cfg.Collection.Interval.Duration):
		}
	}
}

// cycle runs one collect → submit → heartbeat pass. Submission and
// heartbeat outcomes are independent: neither blocks nor rolls back the
// other.
func (a *Agent) cycle(ctx context.Context) {
	if _, err := a.tokens.Token(ctx); err != nil {
		// No partial cycle without a session; retry next interval.
		a.logger.Error("Authentication failed, skipping cycle", zap.Error(err))
		a.status.RecordAuth(false)
		return
	}
	a.status.RecordAuth(true)

	a.refreshDirectories(ctx)

	metrics := a.collector.CollectAll(ctx)
	if len(metrics) == 0 {
		a.logger.Warn("No metrics collected this cycle")
	}

	batch := models.MetricBatch{
		HostID:    a.cfg.API.HostID,
		Metrics:   metrics,
		AgentInfo: a.info,
	}

	accepted, err := a.submitter.SubmitMetrics(ctx, batch)
	if err != nil {
		// Best-effort telemetry: the batch is dropped, not requeued.
		a.logger.Error("Metric submission failed, dropping batch",
			zap.Int("metrics", len(metrics)),
			zap.Error(err))
		a.status.RecordSubmit(0, err)
	} else {
		a.logger.Info("Metrics submitted", zap.Int("accepted", accepted))
		a.status.RecordSubmit(accepted, nil)
	}

	hb := models.Heartbeat{
		Timestamp:    time.Now().UTC(),
		Status:       "online",
		AgentVersion: a.info.Version,
		InstanceID:   a.instanceID,
	}
	if err := a.submitter.SendHeartbeat(ctx, hb); err != nil {
		a.logger.Warn("Heartbeat failed", zap.Error(err))
		a.status.RecordHeartbeat(err)
	} else {
		a.logger.Debug("Heartbeat sent")
		a.status.RecordHeartbeat(nil)
	}

	a.status.RecordCycle(time.Now().UTC())
}

// refreshDirectories pulls the monitored-directory override from the API
// on a slower cadence than collection. Best-effort: any failure or an
// empty list keeps the current local list.
func (a *Agent) refreshDirectories(ctx context.Context) {
	if a.dirs == nil {
		return
	}
	if !a.lastDirRefresh.IsZero() && time.Since(a.lastDirRefresh) < a.cfg.Collection.DirectoryRefresh.Duration {
		return
	}
	a.lastDirRefresh = time.Now()

	dirs, err := a.submitter.FetchDirectories(ctx)
	if err != nil {
		a.logger.Warn("Directory list fetch failed, keeping local list", zap.Error(err))
		return
	}
	if len(dirs) == 0 {
		a.logger.Debug("API returned empty directory list, keeping local list")
		return
	}
	a.dirs.SetPaths(dirs)
	a.logger.Info("Monitored directories updated from API", zap.Strings("paths", dirs))
}
