// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It maps the metrics package names onto client_golang collectors and pushes
// the registry to a Pushgateway on Flush instead of exposing a scrape
// endpoint. The job label becomes the Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"sqlview/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // sqlview_step_total
	stepDuration *prometheus.SummaryVec // sqlview_step_duration_seconds

	objectCounter *prometheus.CounterVec // sqlview_objects_total
	dropCounter   *prometheus.CounterVec // sqlview_drops_total
	rowCounter    *prometheus.CounterVec // sqlview_rows_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sqlview"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Lifecycle operations, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of lifecycle operations in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	objectCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ObjectsTotal,
			Help: "Temporary object events (created, queued) per object kind.",
		},
		[]string{"kind", "event"},
	)
	dropCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.DropsTotal,
			Help: "Deferred DROP statements executed, per object kind and status.",
		},
		[]string{"kind", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows loaded into or read from temporary objects.",
		},
		[]string{"kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":   stepCounter,
		"step summary":   stepDuration,
		"object counter": objectCounter,
		"drop counter":   dropCounter,
		"row counter":    rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		objectCounter: objectCounter,
		dropCounter:   dropCounter,
		rowCounter:    rowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	var (
		vec    *prometheus.CounterVec
		values []string
	)
	switch name {
	case metrics.StepTotal:
		vec, values = b.stepCounter, []string{labels["step"], labels["status"]}
	case metrics.ObjectsTotal:
		vec, values = b.objectCounter, []string{labels["kind"], labels["event"]}
	case metrics.DropsTotal:
		vec, values = b.dropCounter, []string{labels["kind"], labels["status"]}
	case metrics.RowsTotal:
		vec, values = b.rowCounter, []string{labels["kind"]}
	default:
		// unknown metric name: ignore
		return
	}
	if vec == nil {
		return
	}
	vec.WithLabelValues(values...).Add(delta)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
