// Package models defines the metric and API payload structures used
// throughout the agent. These structures are serialized to JSON for
// transmission to the ZenMon API.
package models

import "time"

// MetricName identifies the kind of observation a Metric carries.
type MetricName string

// Metric names understood by the API.
const (
	MetricCPUUsage           MetricName = "CPU Usage"
	MetricMemoryUsage        MetricName = "Memory Usage"
	MetricDiskUsage          MetricName = "Disk Usage"
	MetricNetworkLatency     MetricName = "Network Latency"
	MetricDirectorySize      MetricName = "Directory Size"
	MetricDirectoryFileCount MetricName = "Directory File Count"
)

// Metric is a single observation produced within one collection cycle.
// Path is set only for directory metrics and identifies the monitored path.
type Metric struct {
	Name      MetricName `json:"metric_name"`
	Unit      string     `json:"unit"`
	Value     float64    `json:"value"`
	HostID    int        `json:"host_id"`
	Timestamp time.Time  `json:"timestamp"`
	Path      string     `json:"path,omitempty"`
}

// AgentInfo describes the reporting agent, attached to every batch.
type AgentInfo struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Hostname string `json:"hostname"`
}

// MetricBatch is the payload sent via POST /agent/metrics/batch.
// A batch is created fresh each cycle and discarded after submission.
type MetricBatch struct {
	HostID    int       `json:"host_id"`
	Metrics   []Metric  `json:"metrics"`
	AgentInfo AgentInfo `json:"agent_info"`
}

// Heartbeat is the liveness payload sent via POST /agent/heartbeat/{host_id}.
// It carries no metric data; heartbeat and metric submission are
// independent signals.
type Heartbeat struct {
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	AgentVersion string    `json:"agent_version"`
	InstanceID   string    `json:"instance_id"`
}

// LoginRequest is the credential exchange payload for POST /login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// SubmitResponse is the (optional) body returned by the batch endpoint.
// When the server omits it, the agent assumes the full batch was accepted.
type SubmitResponse struct {
	Accepted int `json:"accepted"`
}

// DirectoriesResponse is returned by GET /agent/monitored-directories/{host_id}.
type DirectoriesResponse struct {
	Directories []string `json:"directories"`
}

// HealthResponse is returned by the unauthenticated GET /public/health probe.
type HealthResponse struct {
	Status string `json:"status"`
}
