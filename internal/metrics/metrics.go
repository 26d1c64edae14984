package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Metrics holds the Prometheus collectors of the auth service.
type Metrics struct {
	OperationsTotal     *prometheus.CounterVec
	HashDuration        *prometheus.HistogramVec
	RevocationsTotal    prometheus.Counter
	LedgerPrunedTotal   prometheus.Counter
	LedgerCacheHitTotal prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authlib_operations_total",
				Help: "Total number of auth operations by outcome",
			},
			[]string{"operation", "result"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authlib_hash_duration_seconds",
				Help:    "Credential hash and verify duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"operation"},
		),
		RevocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authlib_revocations_total",
			Help: "Total number of tokens written to the revocation ledger",
		}),
		LedgerPrunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authlib_ledger_pruned_total",
			Help: "Total number of expired revocation records removed",
		}),
		LedgerCacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authlib_ledger_cache_hits_total",
			Help: "Total number of revocation checks answered from cache",
		}),
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.HashDuration,
		m.RevocationsTotal,
		m.LedgerPrunedTotal,
		m.LedgerCacheHitTotal,
	)

	return m
}

// NewNoop returns collectors registered nowhere, for tests and tools.
func NewNoop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// RecordOperation counts one finished operation.
func (m *Metrics) RecordOperation(operation, result string) {
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveHash records the duration of a hash or verify call started at start.
func (m *Metrics) ObserveHash(operation string, start time.Time) {
	m.HashDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
