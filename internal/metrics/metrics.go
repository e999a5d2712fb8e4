// Package metrics is a small, backend-agnostic facade for run metrics.
//
// A global backend defaults to a no-op, so every Record* call is safe when no
// metrics system is configured. Concrete systems (Prometheus Pushgateway,
// DogStatsD) live in subpackages and are installed with SetBackend.
package metrics

import "time"

// Metric names emitted by the loader.
const (
	StepTotal           = "userload_step_total"
	StepDurationSeconds = "userload_step_duration_seconds"
	RecordsTotal        = "userload_records_total"
	RejectedTotal       = "userload_rejected_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes buffered metrics. Called once at exit.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
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

// RecordStep counts one execution of a run step and its latency, labelled
// success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta to the record counter of the given kind, e.g.
// "read", "valid", "written_csv", "upserted". Non-positive deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordRejected adds delta to the per-stage rejection counter.
func RecordRejected(job, stage string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RejectedTotal, float64(delta), Labels{"job": job, "stage": stage})
}
