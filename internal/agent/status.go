// Shared status snapshot for the diagnostics endpoint. The run-loop
// writes after each step; any other goroutine may read a copy.
package agent

import (
	"sync"
	"time"
)

// Outcome records the result of the most recent attempt at an operation.
type Outcome struct {
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Snapshot is a point-in-time copy of the agent's observable state.
type Snapshot struct {
	InstanceID      string    `json:"instance_id"`
	HostID          int       `json:"host_id"`
	StartedAt       time.Time `json:"started_at"`
	Authenticated   bool      `json:"authenticated"`
	CyclesCompleted int       `json:"cycles_completed"`
	LastCycle       time.Time `json:"last_cycle,omitempty"`
	LastAccepted    int       `json:"last_accepted"`
	LastSubmit      *Outcome  `json:"last_submit,omitempty"`
	LastHeartbeat   *Outcome  `json:"last_heartbeat,omitempty"`
}

// Status holds the snapshot behind a read-write lock.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatus creates a status holder for the given agent identity.
func NewStatus(instanceID string, hostID int) *Status {
	return &Status{
		snap: Snapshot{
			InstanceID: instanceID,
			HostID:     hostID,
			StartedAt:  time.Now().UTC(),
		},
	}
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// RecordAuth notes whether a usable session exists.
func (s *Status) RecordAuth(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Authenticated = ok
}

// RecordSubmit notes the outcome of the cycle's metric submission.
func (s *Status) RecordSubmit(accepted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastAccepted = accepted
	s.snap.LastSubmit = outcome(err)
}

// RecordHeartbeat notes the outcome of the cycle's heartbeat.
func (s *Status) RecordHeartbeat(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastHeartbeat = outcome(err)
}

// RecordCycle marks a completed cycle.
func (s *Status) RecordCycle(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastCycle = at
	s.snap.CyclesCompleted++
}

func outcome(err error) *Outcome {
	o := &Outcome{OK: err == nil, At: time.Now().UTC()}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
