// metrics.go - Prometheus collectors for the pool daemon.
package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the daemon exports.
type Metrics struct {
	OperationsTotal      *prometheus.CounterVec
	NullifiersSpentTotal prometheus.Counter
	CommitmentsTotal     prometheus.Counter
	WithdrawalsTotal     prometheus.Counter
	PoolLiquidity        *prometheus.GaugeVec
	ProofVerifySeconds   prometheus.Histogram
}

// NewMetrics creates and registers the daemon's collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldpool_operations_total",
			Help: "Submitted shielded operations by kind and result.",
		}, []string{"kind", "result"}),
		NullifiersSpentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shieldpool_nullifiers_spent_total",
			Help: "Nullifier hashes marked spent.",
		}),
		CommitmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shieldpool_commitments_total",
			Help: "Commitments appended to the accumulator.",
		}),
		WithdrawalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shieldpool_withdrawals_total",
			Help: "Accepted shielded withdrawals.",
		}),
		PoolLiquidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shieldpool_pool_liquidity",
			Help: "Active liquidity per pool.",
		}, []string{"pool"}),
		ProofVerifySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shieldpool_proof_verify_seconds",
			Help:    "Wall time of the full submit path, verification included.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	reg.MustRegister(
		m.OperationsTotal,
		m.NullifiersSpentTotal,
		m.CommitmentsTotal,
		m.WithdrawalsTotal,
		m.PoolLiquidity,
		m.ProofVerifySeconds,
	)
	return m
}
