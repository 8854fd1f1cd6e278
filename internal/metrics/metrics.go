// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the temporary-object lifecycle.
//
// It exposes a narrow interface (Backend) focused on counters and timing
// data, and a global, pluggable backend that defaults to a no-op
// implementation, so metrics are always safe to call even when no real
// backend is configured. Concrete systems (Prometheus Pushgateway, Datadog)
// live in subpackages.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "sqlview_step_total"
	StepDuration = "sqlview_step_duration_seconds"
	ObjectsTotal = "sqlview_objects_total"
	DropsTotal   = "sqlview_drops_total"
	RowsTotal    = "sqlview_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep measures latency and success/failure of one lifecycle
// operation, e.g. "query", "load", "iterate", "collect".
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordObject counts a temporary-object event ("created", "queued") for
// an object kind ("VIEW", "TABLE").
func RecordObject(job, kind, event string) {
	backend.IncCounter(ObjectsTotal, 1, Labels{
		"job":   job,
		"kind":  kind,
		"event": event,
	})
}

// RecordDrop counts one executed deferred drop.
func RecordDrop(job, kind string, err error) {
	backend.IncCounter(DropsTotal, 1, Labels{
		"job":    job,
		"kind":   kind,
		"status": status(err),
	})
}

// RecordRows increments a row-level counter ("loaded", "read").
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
