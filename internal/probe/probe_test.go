package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestReadyOnFirstAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second, MaxAttempts: 5, Interval: 50 * time.Millisecond})
	res := p.WaitForReady(context.Background(), srv.URL)
	if !res.Ready() {
		t.Fatalf("expected ready, got %+v", res)
	}
	if res.Attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", res.Attempts)
	}
	if hits.Load() != 1 {
		t.Fatalf("server saw %d requests, want 1", hits.Load())
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
}

func TestReadyAfterServerComesUp(t *testing.T) {
	// Reserve an address, keep it closed for the first attempts, then start
	// listening. Mirrors a backend that is still booting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	var srv *httptest.Server
	started := make(chan struct{})
	go func() {
		time.Sleep(300 * time.Millisecond)
		ln2, err := net.Listen("tcp", addr)
		if err != nil {
			close(started)
			return
		}
		srv = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		srv.Listener = ln2
		srv.Start()
		close(started)
	}()

	p := New(Config{Timeout: 5 * time.Second, MaxAttempts: 10, Interval: 100 * time.Millisecond})
	res := p.WaitForReady(context.Background(), "http://"+addr+"/")
	<-started
	if srv != nil {
		defer srv.Close()
	}
	if !res.Ready() {
		t.Fatalf("expected ready after server start, got %+v", res)
	}
	if res.Attempts < 2 {
		t.Fatalf("expected retries before ready, got %d attempts", res.Attempts)
	}
	if res.Attempts > 10 {
		t.Fatalf("attempt ceiling exceeded: %d", res.Attempts)
	}
}

func TestAlwaysServerErrorResolvesTimedOut(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second, MaxAttempts: 3, Interval: 20 * time.Millisecond})
	res := p.WaitForReady(context.Background(), srv.URL)
	if res.Outcome != OutcomeTimedOut {
		t.Fatalf("expected timed_out, got %+v", res)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", res.Attempts)
	}
	if hits.Load() != 3 {
		t.Fatalf("server saw %d requests, want 3", hits.Load())
	}
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("last status = %d, want 500", res.StatusCode)
	}
}

func TestUnreachableResolvesNetworkFailure(t *testing.T) {
	// Grab a port nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	timeout := 500 * time.Millisecond
	interval := 200 * time.Millisecond
	start := time.Now()
	p := New(Config{Timeout: timeout, MaxAttempts: 100, Interval: interval})
	res := p.WaitForReady(context.Background(), "http://"+addr+"/")
	elapsed := time.Since(start)

	if res.Outcome != OutcomeNetworkFailure {
		t.Fatalf("expected network_failure, got %+v", res)
	}
	if res.Err == nil {
		t.Fatalf("expected last connection error to be recorded")
	}
	if elapsed < timeout {
		t.Fatalf("resolved too early: %v < %v", elapsed, timeout)
	}
	// One interval of slack past the deadline is allowed, plus scheduling noise.
	if elapsed > timeout+interval+300*time.Millisecond {
		t.Fatalf("resolved too late: %v", elapsed)
	}
	// Connection-refused attempts are near-instant, so the attempt count is
	// driven by the interval: roughly timeout/interval + 1.
	if res.Attempts < 3 || res.Attempts > 5 {
		t.Fatalf("unexpected attempt count %d", res.Attempts)
	}
}

func TestAttemptCeilingTripsBeforeTimeLimit(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	p := New(Config{Timeout: time.Minute, MaxAttempts: 2, Interval: 10 * time.Millisecond})
	start := time.Now()
	res := p.WaitForReady(context.Background(), "http://"+addr+"/")
	if res.Outcome != OutcomeNetworkFailure {
		t.Fatalf("expected network_failure, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", res.Attempts)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("ceiling should resolve quickly, took %v", time.Since(start))
	}
}

func TestContextCancelStopsProbing(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	p := New(Config{Timeout: time.Minute, MaxAttempts: 1000, Interval: 50 * time.Millisecond})
	start := time.Now()
	res := p.WaitForReady(ctx, "http://"+addr+"/")
	if res.Outcome != OutcomeNetworkFailure {
		t.Fatalf("expected network_failure on cancel, got %+v", res)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("cancel not honored, took %v", time.Since(start))
	}
}

func TestSuccessPolicyBoundaries(t *testing.T) {
	cases := []struct {
		status int
		strict bool // PolicyRedirectOK accepts
		loose  bool // PolicyAnyNon5xx accepts
	}{
		{200, true, true},
		{302, true, true},
		{399, true, true},
		{404, false, true},
		{499, false, true},
		{500, false, false},
		{503, false, false},
		{199, false, false},
	}
	for _, tc := range cases {
		if got := PolicyRedirectOK.Accepts(tc.status); got != tc.strict {
			t.Fatalf("redirect_ok(%d) = %v, want %v", tc.status, got, tc.strict)
		}
		if got := PolicyAnyNon5xx.Accepts(tc.status); got != tc.loose {
			t.Fatalf("non_5xx(%d) = %v, want %v", tc.status, got, tc.loose)
		}
	}
}

func TestLoosePolicyAcceptsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	strict := New(Config{Timeout: time.Second, MaxAttempts: 2, Interval: 20 * time.Millisecond, Policy: PolicyRedirectOK})
	if res := strict.WaitForReady(context.Background(), srv.URL); res.Ready() {
		t.Fatalf("strict policy must not accept 404, got %+v", res)
	}
	loose := New(Config{Timeout: time.Second, MaxAttempts: 2, Interval: 20 * time.Millisecond, Policy: PolicyAnyNon5xx})
	if res := loose.WaitForReady(context.Background(), srv.URL); !res.Ready() {
		t.Fatalf("loose policy should accept 404, got %+v", res)
	}
}
