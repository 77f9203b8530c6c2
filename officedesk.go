// Package officedesk is the desktop shell for the office attendance suite:
// it supervises the Django backend as a child process, polls it for
// readiness, and presents it in a native window.
package officedesk

import (
	"officedesk/internal/app"
	"officedesk/internal/backend"
	"officedesk/internal/history"
	"officedesk/internal/probe"
	"officedesk/internal/window"
)

// Version is exposed to the page through the webview bridge and printed by
// the version subcommand.
const Version = "0.4.1"

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type BackendSpec = backend.Spec

type Supervisor = backend.Supervisor

type ProbeConfig = probe.Config

type ProbeResult = probe.Result

type Outcome = probe.Outcome

type Decision = window.Decision

type Options = app.Options

type App = app.App

type Status = app.Status

type HistoryEvent = history.Event

type HistorySink = history.Sink

// ErrNoBackend is returned by Supervisor.Start when the entry script is
// absent; callers treat it as "the backend is managed externally".
var ErrNoBackend = backend.ErrNoBackend

// NewSupervisor creates a supervisor for the backend child process.
func NewSupervisor(spec BackendSpec) *Supervisor { return backend.NewSupervisor(spec) }

// NewProber creates a readiness prober.
func NewProber(cfg ProbeConfig) *probe.Prober { return probe.New(cfg) }

// New creates the lifecycle controller driving one launcher session.
func New(opts Options) *App { return app.New(opts) }
