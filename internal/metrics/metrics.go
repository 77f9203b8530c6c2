package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	probeAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "officedesk",
			Subsystem: "probe",
			Name:      "attempts_total",
			Help:      "Number of readiness probe attempts issued.",
		},
	)
	probeOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "officedesk",
			Subsystem: "probe",
			Name:      "outcomes_total",
			Help:      "Number of resolved probe sequences per terminal outcome.",
		}, []string{"outcome"},
	)
	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "officedesk",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Wall time from first attempt to terminal outcome.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	backendStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "officedesk",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Number of backend child processes spawned.",
		},
	)
	backendStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "officedesk",
			Subsystem: "backend",
			Name:      "stops_total",
			Help:      "Number of backend terminations (exit or kill).",
		},
	)
	backendUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "officedesk",
			Subsystem: "backend",
			Name:      "up",
			Help:      "1 while the supervised backend child is running.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{probeAttempts, probeOutcomes, probeDuration, backendStarts, backendStops, backendUp}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called, so library use without
// metrics stays silent.

func IncProbeAttempt() {
	if regOK.Load() {
		probeAttempts.Inc()
	}
}

func IncProbeOutcome(outcome string) {
	if regOK.Load() {
		probeOutcomes.WithLabelValues(outcome).Inc()
	}
}

func ObserveProbeDuration(seconds float64) {
	if regOK.Load() {
		probeDuration.Observe(seconds)
	}
}

func IncBackendStart() {
	if regOK.Load() {
		backendStarts.Inc()
	}
}

func IncBackendStop() {
	if regOK.Load() {
		backendStops.Inc()
	}
}

func SetBackendUp(up bool) {
	if !regOK.Load() {
		return
	}
	if up {
		backendUp.Set(1)
	} else {
		backendUp.Set(0)
	}
}
