package history

import (
	"context"
	"time"
)

// EventType defines the kind of launcher lifecycle event.
type EventType string

const (
	// EventLaunch is recorded when the backend child is spawned (or when the
	// launcher decides the backend is externally managed).
	EventLaunch EventType = "launch"
	// EventReady is recorded when the readiness probe resolved successfully.
	EventReady EventType = "ready"
	// EventDegraded is recorded when the probe exhausted its limits.
	EventDegraded EventType = "degraded"
	// EventShutdown is recorded when the launcher tears the session down.
	EventShutdown EventType = "shutdown"
)

// Event is one entry in the launch-session audit trail.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	PID        int       `json:"pid,omitempty"`    // backend child pid, 0 when externally managed
	Status     string    `json:"status,omitempty"` // probe outcome or exit status text
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for launch history. Recording is best-effort: the
// launcher logs sink errors and keeps going.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
