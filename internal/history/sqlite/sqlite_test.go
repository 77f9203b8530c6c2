package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"officedesk/internal/history"
)

func TestNewRejectsEmptyDSN(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	if _, err := New("   "); err == nil {
		t.Fatalf("expected error for blank DSN")
	}
}

func TestSendAndReadBack(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = sink.Close() }()

	events := []history.Event{
		{Type: history.EventLaunch, OccurredAt: time.Now(), PID: 4242},
		{Type: history.EventReady, OccurredAt: time.Now(), PID: 4242, Status: "ready", Detail: "1 attempts"},
		{Type: history.EventShutdown, OccurredAt: time.Now(), PID: 4242, Status: "exit 0"},
	}
	for _, e := range events {
		if err := sink.Send(context.Background(), e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var n int
	if err := sink.db.QueryRow(`SELECT COUNT(*) FROM launch_history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(events) {
		t.Fatalf("rows = %d, want %d", n, len(events))
	}
	var event, status string
	var pid int
	err = sink.db.QueryRow(`SELECT event, pid, status FROM launch_history WHERE event = 'ready'`).Scan(&event, &pid, &status)
	if err != nil {
		t.Fatalf("select ready: %v", err)
	}
	if event != "ready" || pid != 4242 || status != "ready" {
		t.Fatalf("unexpected row: %s %d %s", event, pid, status)
	}
}

func TestSchemaPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := sink.Send(context.Background(), history.Event{Type: history.EventLaunch, OccurredAt: time.Now(), PID: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = again.Close() }()
	var n int
	if err := again.db.QueryRow(`SELECT COUNT(*) FROM launch_history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}
