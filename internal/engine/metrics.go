package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	WorkersCreated prometheus.Counter
	WorkersRetired prometheus.Counter
	ActiveWorkers  prometheus.Gauge
	ZombieWorkers  prometheus.Gauge
	Operations     *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec
	Faults         *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WorkersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "workers_created_total",
			Help:      "Total number of lifecycle workers started",
		}),
		WorkersRetired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "workers_retired_total",
			Help:      "Total number of workers that retired after their keep-alive expired",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "active_workers",
			Help:      "Idle workers available for reuse",
		}),
		ZombieWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "zombie_workers",
			Help:      "Retired workers not yet reaped",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Lifecycle operations executed, by kind and outcome",
		}, []string{"op", "outcome"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing lifecycle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "faults_total",
			Help:      "Hook failures translated into framework error events",
		}, []string{"op"}),
	}
}

// Collectors returns every collector in m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WorkersCreated, m.WorkersRetired, m.ActiveWorkers, m.ZombieWorkers,
		m.Operations, m.OpDuration, m.Faults,
	}
}

// Register registers all collectors with reg. Collectors that are already
// registered are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
