// Network latency source — measures round-trip time of a lightweight
// reachability probe against the API's public health endpoint. This is
// a liveness-latency measurement, not a full API request.
package sampler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/zenmon-app/agent/internal/models"
)

// probeTimeout bounds a single latency probe. A probe that exceeds it is
// reported as the timeout ceiling rather than omitted, so sustained
// unreachability still shows up in the metric stream.
const probeTimeout = 10 * time.Second

// LatencySource measures network round-trip latency to the API host.
type LatencySource struct {
	probeURL string
	client   *http.Client
}

// NewLatencySource creates a latency source probing the given URL.
func NewLatencySource(probeURL string) *LatencySource {
	return &LatencySource{
		probeURL: probeURL,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the source identifier.
func (s *LatencySource) Name() string { return "netlatency" }

// Collect performs one probe and reports the elapsed time in milliseconds.
// Any HTTP status counts as reachability; only transport failures other
// than a timeout omit the metric.
func (s *LatencySource) Collect(ctx context.Context) ([]models.Metric, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.probeURL, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if isTimeout(err) {
			return []models.Metric{{
				Name:      models.MetricNetworkLatency,
				Unit:      "ms",
				Value:     float64(probeTimeout.Milliseconds()),
				Timestamp: time.Now().UTC(),
			}}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return []models.Metric{{
		Name:      models.MetricNetworkLatency,
		Unit:      "ms",
		Value:     float64(elapsed.Milliseconds()),
		Timestamp: time.Now().UTC(),
	}}, nil
}

// Available returns true — the probe needs nothing platform-specific.
func (s *LatencySource) Available() bool { return true }

// isTimeout reports whether a probe failure was a timeout rather than
// some other transport error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
