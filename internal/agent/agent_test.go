package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/client"
	"github.com/zenmon-app/agent/internal/config"
	"github.com/zenmon-app/agent/internal/models"
	"github.com/zenmon-app/agent/internal/session"
)

type fakeTokens struct {
	err   error
	calls int
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) {
	f.calls++
	return "T1", f.err
}

type fakeCollector struct {
	metrics []models.Metric
	calls   int
}

func (f *fakeCollector) CollectAll(ctx context.Context) []models.Metric {
	f.calls++
	return f.metrics
}

type fakeSubmitter struct {
	submitErr    error
	heartbeatErr error
	dirs         []string
	dirsErr      error

	submits    int
	heartbeats int
	dirFetches int
	lastBatch  models.MetricBatch
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, batch models.MetricBatch) (int, error) {
	f.submits++
	f.lastBatch = batch
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	return len(batch.Metrics), nil
}

func (f *fakeSubmitter) SendHeartbeat(ctx context.Context, hb models.Heartbeat) error {
	f.heartbeats++
	return f.heartbeatErr
}

func (f *fakeSubmitter) FetchDirectories(ctx context.Context) ([]string, error) {
	f.dirFetches++
	return f.dirs, f.dirsErr
}

type fakeDirs struct {
	paths []string
}

func (f *fakeDirs) SetPaths(paths []string) { f.paths = paths }

func testAgentConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.URL = "http://x/api"
	cfg.API.HostID = 7
	cfg.Collection.Interval = config.Duration{Duration: 20 * time.Millisecond}
	return cfg
}

func sampleMetrics() []models.Metric {
	return []models.Metric{
		{Name: models.MetricCPUUsage, Unit: "%", Value: 12.5, HostID: 7, Timestamp: time.Now().UTC()},
		{Name: models.MetricMemoryUsage, Unit: "%", Value: 40, HostID: 7, Timestamp: time.Now().UTC()},
	}
}

func TestCycle_OneSubmissionAndOneHeartbeat(t *testing.T) {
	sub := &fakeSubmitter{}
	a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{metrics: sampleMetrics()}, nil, zap.NewNop())

	a.cycle(context.Background())

	if sub.submits != 1 {
		t.Errorf("submissions = %d, want exactly 1 per cycle", sub.submits)
	}
	if sub.heartbeats != 1 {
		t.Errorf("heartbeats = %d, want exactly 1 per cycle", sub.heartbeats)
	}
	if sub.lastBatch.HostID != 7 {
		t.Errorf("batch host ID = %d, want 7", sub.lastBatch.HostID)
	}
	if len(sub.lastBatch.Metrics) != 2 {
		t.Errorf("batch size = %d, want 2", len(sub.lastBatch.Metrics))
	}
}

func TestCycle_AuthFailureSkipsEverything(t *testing.T) {
	sub := &fakeSubmitter{}
	col := &fakeCollector{metrics: sampleMetrics()}
	a := New(testAgentConfig(), "test", &fakeTokens{err: errors.New("bad credentials")}, sub, col, nil, zap.NewNop())

	a.cycle(context.Background())

	if col.calls != 0 {
		t.Error("no collection without a session")
	}
	if sub.submits != 0 || sub.heartbeats != 0 {
		t.Errorf("submits=%d heartbeats=%d, want no partial cycle without a session", sub.submits, sub.heartbeats)
	}
	if a.Status().Snapshot().Authenticated {
		t.Error("status must show unauthenticated after auth failure")
	}
}

func TestCycle_SubmitAndHeartbeatAreIndependent(t *testing.T) {
	tests := []struct {
		name         string
		submitErr    error
		heartbeatErr error
	}{
		{"both succeed", nil, nil},
		{"submit fails", errors.New("submit down"), nil},
		{"heartbeat fails", nil, errors.New("heartbeat down")},
		{"both fail", errors.New("submit down"), errors.New("heartbeat down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{submitErr: tt.submitErr, heartbeatErr: tt.heartbeatErr}
			a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{metrics: sampleMetrics()}, nil, zap.NewNop())

			a.cycle(context.Background())

			if sub.submits != 1 || sub.heartbeats != 1 {
				t.Errorf("submits=%d heartbeats=%d, want both attempted regardless of the other's outcome",
					sub.submits, sub.heartbeats)
			}

			snap := a.Status().Snapshot()
			if snap.LastSubmit == nil || snap.LastSubmit.OK != (tt.submitErr == nil) {
				t.Errorf("submit outcome = %+v, want OK=%v", snap.LastSubmit, tt.submitErr == nil)
			}
			if snap.LastHeartbeat == nil || snap.LastHeartbeat.OK != (tt.heartbeatErr == nil) {
				t.Errorf("heartbeat outcome = %+v, want OK=%v", snap.LastHeartbeat, tt.heartbeatErr == nil)
			}
		})
	}
}

func TestRefreshDirectories_OverrideAndFallback(t *testing.T) {
	t.Run("override applied", func(t *testing.T) {
		sub := &fakeSubmitter{dirs: []string{"/srv", "/opt"}}
		dirs := &fakeDirs{paths: []string{"/var"}}
		a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{}, dirs, zap.NewNop())

		a.cycle(context.Background())

		if len(dirs.paths) != 2 || dirs.paths[0] != "/srv" {
			t.Errorf("paths = %v, want API override [/srv /opt]", dirs.paths)
		}
	})

	t.Run("fetch failure keeps local list", func(t *testing.T) {
		sub := &fakeSubmitter{dirsErr: errors.New("unavailable")}
		dirs := &fakeDirs{paths: []string{"/var"}}
		a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{}, dirs, zap.NewNop())

		a.cycle(context.Background())

		if len(dirs.paths) != 1 || dirs.paths[0] != "/var" {
			t.Errorf("paths = %v, want untouched local list", dirs.paths)
		}
	})

	t.Run("refresh respects cadence", func(t *testing.T) {
		sub := &fakeSubmitter{dirs: []string{"/srv"}}
		a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{}, &fakeDirs{}, zap.NewNop())

		a.cycle(context.Background())
		a.cycle(context.Background())

		if sub.dirFetches != 1 {
			t.Errorf("directory fetches = %d, want 1 within the refresh interval", sub.dirFetches)
		}
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	sub := &fakeSubmitter{}
	a := New(testAgentConfig(), "test", &fakeTokens{}, sub, &fakeCollector{metrics: sampleMetrics()}, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	if sub.submits < 2 {
		t.Errorf("submissions = %d, want at least 2 cycles in the window", sub.submits)
	}
	if sub.submits != sub.heartbeats {
		t.Errorf("submits=%d heartbeats=%d, want one heartbeat per submission cycle", sub.submits, sub.heartbeats)
	}
}

// End-to-end: real session manager and submission client against a
// scripted API. Login succeeds with token T1, metrics are accepted, the
// heartbeat fails twice (exhausting max_retries=2 in cycle one) and
// succeeds in cycle two without re-authentication.
func TestEndToEnd_HeartbeatOutageRecovery(t *testing.T) {
	var logins, batches, heartbeats int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login":
			atomic.AddInt32(&logins, 1)
			json.NewEncoder(w).Encode(models.LoginResponse{Token: "T1"})
		case r.URL.Path == "/agent/metrics/batch":
			if r.Header.Get("Authorization") != "Bearer T1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			atomic.AddInt32(&batches, 1)
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/agent/heartbeat/7":
			if atomic.AddInt32(&heartbeats, 1) <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/agent/monitored-directories/7":
			json.NewEncoder(w).Encode(models.DirectoriesResponse{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.API.URL = server.URL
	cfg.API.HostID = 7
	cfg.API.Login = "agent"
	cfg.API.Password = "secret"
	cfg.API.MaxRetries = 2
	cfg.API.RetryDelay = config.Duration{Duration: 10 * time.Millisecond}
	cfg.Collection.Interval = config.Duration{Duration: time.Second}

	logger := zap.NewNop()
	sessions := session.NewManager(cfg, logger)
	submitter := client.New(cfg, sessions, logger)
	a := New(cfg, "test", sessions, submitter, &fakeCollector{metrics: sampleMetrics()}, nil, logger)

	// Cycle one: authenticate, submit, heartbeat fails twice.
	a.cycle(context.Background())
	snap := a.Status().Snapshot()
	if snap.LastSubmit == nil || !snap.LastSubmit.OK {
		t.Fatalf("cycle 1 submit outcome = %+v, want success", snap.LastSubmit)
	}
	if snap.LastHeartbeat == nil || snap.LastHeartbeat.OK {
		t.Fatalf("cycle 1 heartbeat outcome = %+v, want failure after retries", snap.LastHeartbeat)
	}
	if got := atomic.LoadInt32(&heartbeats); got != 2 {
		t.Errorf("heartbeat attempts = %d, want max_retries=2 in cycle 1", got)
	}

	// Cycle two: token still valid, heartbeat recovers.
	a.cycle(context.Background())
	snap = a.Status().Snapshot()
	if snap.LastHeartbeat == nil || !snap.LastHeartbeat.OK {
		t.Fatalf("cycle 2 heartbeat outcome = %+v, want success", snap.LastHeartbeat)
	}

	if got := atomic.LoadInt32(&logins); got != 1 {
		t.Errorf("logins = %d, want 1 (second cycle reuses the valid token)", got)
	}
	if got := atomic.LoadInt32(&batches); got != 2 {
		t.Errorf("batch submissions = %d, want one per cycle", got)
	}
	if snap.CyclesCompleted != 2 {
		t.Errorf("cycles completed = %d, want 2", snap.CyclesCompleted)
	}
}
