package migrate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

const metricsNamespace = "ngmigrate"

// Entity outcomes counted by Metrics.
const (
	OutcomeMigrated   = "migrated"
	OutcomeExisting   = "existing"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeIneligible = "ineligible"
	OutcomeAborted    = "aborted"
)

// Metrics is a prometheus.Collector over migration runs.
type Metrics struct {
	entities       *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	runs           *prometheus.CounterVec
}

// NewMetrics returns unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		entities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "entities_total",
				Help:      "Legacy entities processed, by type and outcome.",
			}, []string{"entity_type", "outcome"},
		),
		importDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "import_duration_seconds",
				Help:      "Time spent importing one document into the target.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			}, []string{"entity_type"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Migration runs, by result.",
			}, []string{"result"},
		),
	}
}

// Entity counts one outcome.
func (m *Metrics) Entity(t cg.EntityType, outcome string) {
	if m == nil {
		return
	}
	m.entities.WithLabelValues(string(t), outcome).Inc()
}

// Import observes one import call.
func (m *Metrics) Import(t cg.EntityType, d time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

// Run counts a finished run.
func (m *Metrics) Run(r *Report) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case r.Aborted:
		result = "aborted"
	case !r.Success:
		result = "failure"
	}
	m.runs.WithLabelValues(result).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.entities.Describe(ch)
	m.importDuration.Describe(ch)
	m.runs.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.entities.Collect(ch)
	m.importDuration.Collect(ch)
	m.runs.Collect(ch)
}

// WriteTextfile writes the collected metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		return errors.Wrap(err, "register metrics")
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
