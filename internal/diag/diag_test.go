package diag

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenmon-app/agent/internal/agent"
)

func testRouter(status *agent.Status) http.Handler {
	s := New("127.0.0.1:0", status, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	return r
}

func TestHealthz(t *testing.T) {
	status := agent.NewStatus("i-1", 7)
	server := httptest.NewServer(testRouter(status))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body status = %q, want ok", body["status"])
	}
}

func TestStatus_ReflectsLastCycle(t *testing.T) {
	status := agent.NewStatus("i-1", 7)
	status.RecordAuth(true)
	status.RecordSubmit(4, nil)
	status.RecordHeartbeat(errors.New("heartbeat down"))

	server := httptest.NewServer(testRouter(status))
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snap agent.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}

	if snap.InstanceID != "i-1" || snap.HostID != 7 {
		t.Errorf("identity = (%q, %d), want (i-1, 7)", snap.InstanceID, snap.HostID)
	}
	if !snap.Authenticated {
		t.Error("want authenticated")
	}
	if snap.LastAccepted != 4 {
		t.Errorf("last accepted = %d, want 4", snap.LastAccepted)
	}
	if snap.LastSubmit == nil || !snap.LastSubmit.OK {
		t.Errorf("submit outcome = %+v, want success", snap.LastSubmit)
	}
	if snap.LastHeartbeat == nil || snap.LastHeartbeat.OK || snap.LastHeartbeat.Error != "heartbeat down" {
		t.Errorf("heartbeat outcome = %+v, want recorded failure", snap.LastHeartbeat)
	}
}
