// Package client wraps outbound calls to the monitoring API — metric
// batch submission, heartbeats, the health probe, and the optional
// monitored-directories fetch — with timeout, retry, and backoff policy.
// Transport and HTTP failures are translated into the small taxonomy in
// errors.go; nothing here ever terminates the process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/config"
	"github.com/zenmon-app/agent/internal/models"
)

// maxResponseBodyBytes caps how much of any API response is read.
const maxResponseBodyBytes = 64 * 1024

// TokenProvider supplies bearer tokens for authorized requests and is
// told when the API rejects one. Satisfied by session.Manager.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Client performs all submission operations against the API.
type Client struct {
	http       *http.Client
	baseURL    string
	hostID     int
	maxRetries int
	retryDelay time.Duration
	tokens     TokenProvider
	logger     *zap.Logger
}

// New creates a submission client from the agent configuration.
func New(cfg *config.Config, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.API.Timeout.Duration},
		baseURL:    cfg.BaseURL(),
		hostID:     cfg.API.HostID,
		maxRetries: cfg.API.MaxRetries,
		retryDelay: cfg.API.RetryDelay.Duration,
		tokens:     tokens,
		logger:     logger,
	}
}

// SubmitMetrics sends one cycle's batch. It returns the number of
// metrics the server accepted, or a taxonomy error after the retry
// policy is exhausted. An empty batch is a no-op.
func (c *Client) SubmitMetrics(ctx context.Context, batch models.MetricBatch) (int, error) {
	if len(batch.Metrics) == 0 {
		c.logger.Debug("No metrics to submit, skipping")
		return 0, nil
	}

	body, err := c.doAuthorized(ctx, "submit metrics", http.MethodPost, c.baseURL+"/agent/metrics/batch", batch)
	if err != nil {
		return 0, err
	}

	var sub models.SubmitResponse
	if json.Unmarshal(body, &sub) == nil && sub.Accepted > 0 {
		return sub.Accepted, nil
	}
	return len(batch.Metrics), nil
}

// SendHeartbeat reports liveness for the configured host. Failures are
// independent of metric submission.
func (c *Client) SendHeartbeat(ctx context.Context, hb models.Heartbeat) error {
	url := fmt.Sprintf("%s/agent/heartbeat/%d", c.baseURL, c.hostID)
	_, err := c.doAuthorized(ctx, "send heartbeat", http.MethodPost, url, hb)
	return err
}

// FetchDirectories asks the API for the monitored-directory list for
// this host. Best-effort: the caller keeps its local list on any error.
func (c *Client) FetchDirectories(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/agent/monitored-directories/%d", c.baseURL, c.hostID)
	body, err := c.doAuthorized(ctx, "fetch directories", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var dirs models.DirectoriesResponse
	if err := json.Unmarshal(body, &dirs); err != nil {
		return nil, fmt.Errorf("fetch directories: decode response: %w", err)
	}
	return dirs.Directories, nil
}

// CheckHealth probes the unauthenticated health endpoint. Best-effort,
// diagnostics only: any failure is simply false.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/public/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return false
	}

	var health models.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&health); err != nil {
		return false
	}
	return health.Status == "ok"
}

// doAuthorized runs one operation under the uniform retry policy:
// transient failures (transport error, 5xx) are retried up to the
// configured attempt count with a fixed delay; a 401 invalidates the
// session and retries once with a fresh token; any other 4xx aborts
// immediately.
func (c *Client) doAuthorized(ctx context.Context, op, method, url string, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal payload: %w", op, err)
		}
	}

	reauthed := false
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			c.logger.Warn("Retrying request",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", c.retryDelay))
			if err := sleepCtx(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: acquire token: %w", op, err)
		}

		status, respBody, err := c.do(ctx, method, url, token, reqBody)
		if err != nil {
			lastErr = &TransientError{Op: op, Err: err}
			c.logger.Warn("Request failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		switch {
		case status >= 200 && status < 300:
			return respBody, nil

		case status == http.StatusUnauthorized:
			c.tokens.Invalidate()
			if reauthed {
				return nil, &AuthExpiredError{Op: op}
			}
			c.logger.Warn("Authorization rejected, re-authenticating once",
				zap.String("op", op))
			reauthed = true
			// The single re-auth retry does not consume a transient attempt.
			attempt--
			continue

		case status >= 500:
			lastErr = &TransientError{Op: op, Status: status}
			c.logger.Warn("Server error",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("status", status))
			continue

		default:
			return nil, &PermanentError{Op: op, Status: status}
		}
	}

	return nil, lastErr
}

// do performs a single HTTP exchange and reads the bounded response body.
func (c *Client) do(ctx context.Context, method, url, token string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// sleepCtx waits for d, interruptible by context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
