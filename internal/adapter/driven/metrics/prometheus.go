// Package metrics exports vault operation outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VaultMetrics = (*VaultMetrics)(nil)

// VaultMetrics implements driven.VaultMetrics with a counter and a latency
// histogram, both labelled by operation.
type VaultMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewVaultMetrics creates the collectors and registers them with reg.
func NewVaultMetrics(reg prometheus.Registerer) (*VaultMetrics, error) {
	m := &VaultMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmvault_vault_operations_total",
				Help: "Total count of vault operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "crmvault_vault_operation_duration_seconds",
				Help: "Duration of vault operations, including key derivation",
				// PBKDF2 dominates; expect tens of milliseconds.
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOperation counts one operation and records its duration.
func (m *VaultMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
