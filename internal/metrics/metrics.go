// Package metrics exposes Prometheus collectors for probe runs and writes
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/probecheck/internal/harness"
	"github.com/roach88/probecheck/internal/oracle"
	"github.com/roach88/probecheck/internal/probe"
)

const namespace = "probecheck"

// Metrics records probe and run activity. It implements harness.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	probeDuration *prometheus.HistogramVec
	verdicts      *prometheus.CounterVec
	inFlight      prometheus.Gauge
	lastSuccess   prometheus.Gauge
	lastTimestamp prometheus.Gauge
	lastElapsed   prometheus.Gauge
}

var _ harness.Recorder = (*Metrics)(nil)

// New creates collectors registered on a fresh registry, so several
// instances never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Wall time of one probe execution.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"probe", "outcome"},
		),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Verdicts produced, by probe category and outcome.",
			},
			[]string{"category", "outcome"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "probes_in_flight",
				Help:      "Probes currently executing.",
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "1 if every probe of the last run passed, else 0.",
			},
		),
		lastTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Start time of the last run as a Unix timestamp.",
			},
		),
		lastElapsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_elapsed_seconds",
				Help:      "Wall time of the last run.",
			},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ProbeStarted marks a probe as in flight.
func (m *Metrics) ProbeStarted(probe.Probe) {
	m.inFlight.Inc()
}

// ProbeFinished records a verdict. Verdicts for probes that never started
// (cancelled runs) are counted but not timed.
func (m *Metrics) ProbeFinished(v oracle.Verdict) {
	m.verdicts.WithLabelValues(string(v.Category), string(v.Outcome)).Inc()
	if v.Cause == harness.CauseNotStarted {
		return
	}
	m.inFlight.Dec()
	m.probeDuration.WithLabelValues(v.Probe, string(v.Outcome)).Observe(v.Duration.Seconds())
}

// RunFinished records the run-level gauges.
func (m *Metrics) RunFinished(r *harness.RunReport) {
	if r.Succeeded() {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
	m.lastTimestamp.Set(float64(r.StartedAt.UnixNano()) / float64(time.Second))
	m.lastElapsed.Set(r.Elapsed.Seconds())
}

// WriteTextfile atomically writes all metrics to path in the text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
