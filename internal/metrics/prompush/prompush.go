// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. A batch job has no scrape endpoint, so the registry is
// pushed once on Flush.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"userload/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" grouping key
	reg        *prometheus.Registry

	stepCounter     *prometheus.CounterVec
	stepDuration    *prometheus.SummaryVec
	recordCounter   *prometheus.CounterVec
	rejectedCounter *prometheus.CounterVec
}

// NewBackend constructs a Pushgateway backend. An empty jobName defaults to
// "userload".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "userload"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Run step duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts by kind (read, valid, written_csv, upserted).",
		},
		[]string{"kind"},
	)
	rejectedCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RejectedTotal,
			Help: "Rows dropped by each cleaning stage.",
		},
		[]string{"stage"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":     stepCounter,
		"step summary":     stepDuration,
		"record counter":   recordCounter,
		"rejected counter": rejectedCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:      gatewayURL,
		jobName:         jobName,
		reg:             reg,
		stepCounter:     stepCounter,
		stepDuration:    stepDuration,
		recordCounter:   recordCounter,
		rejectedCounter: rejectedCounter,
	}, nil
}

// IncCounter routes known metric names to their collectors and ignores the rest.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.RejectedTotal:
		if b.rejectedCounter != nil {
			b.rejectedCounter.WithLabelValues(labels["stage"]).Add(delta)
		}
	}
}

// ObserveHistogram records step durations on the summary.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, replacing the job's group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
