package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotentAndHelpersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// idempotent: calling again should be a no-op
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	IncProbeAttempt()
	IncProbeAttempt()
	IncProbeOutcome("ready")
	ObserveProbeDuration(0.42)
	IncBackendStart()
	IncBackendStop()
	SetBackendUp(true)
	SetBackendUp(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	wantNames := map[string]bool{
		"officedesk_probe_attempts_total": false,
		"officedesk_probe_outcomes_total": false,
		"officedesk_probe_duration_seconds": false,
		"officedesk_backend_starts_total": false,
		"officedesk_backend_stops_total":  false,
		"officedesk_backend_up":           false,
	}
	for _, mf := range mfs {
		n := mf.GetName()
		if _, ok := wantNames[n]; ok {
			wantNames[n] = true
			if len(mf.GetMetric()) == 0 {
				t.Fatalf("metric %s has no samples", n)
			}
		}
	}
	for n, ok := range wantNames {
		if !ok {
			t.Fatalf("expected to find metric %s", n)
		}
	}
}

func TestHandlerServesText(t *testing.T) {
	// Handler uses the default gatherer; register there too so officedesk
	// series show up alongside the Go runtime ones.
	_ = Register(prometheus.DefaultRegisterer)
	IncProbeAttempt()

	srv := httptest.NewServer(Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "officedesk_probe_attempts_total") {
		t.Fatalf("metrics output missing probe counter:\n%s", body)
	}
}
