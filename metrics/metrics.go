// Package metrics exposes the prometheus counters/gauges the
// historical and streaming updaters (C8/C9) report through, grounded
// on the teacher's direct dependency on
// github.com/prometheus/client_golang rather than its go-ethereum/metrics
// registry bridge — this module has no legacy metrics.Registry to
// bridge from, so the updaters record directly against client_golang's
// native vector types.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion holds the per-chain counters/gauges both updater
// implementations report through.
type Ingestion struct {
	LogsApplied     *prometheus.CounterVec
	ApplyErrors     *prometheus.CounterVec
	Cursor          *prometheus.GaugeVec
	HeartbeatMisses *prometheus.CounterVec
	Reconnects      *prometheus.CounterVec
}

// NewIngestion constructs and registers the ingestion metric set
// against reg.
func NewIngestion(reg prometheus.Registerer) *Ingestion {
	m := &Ingestion{
		LogsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolmirror",
			Subsystem: "ingest",
			Name:      "logs_applied_total",
			Help:      "Pool events successfully applied to a registry.",
		}, []string{"chain_id"}),
		ApplyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolmirror",
			Subsystem: "ingest",
			Name:      "apply_errors_total",
			Help:      "Pool events dropped after ApplyLog returned an error.",
		}, []string{"chain_id"}),
		Cursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "poolmirror",
			Subsystem: "ingest",
			Name:      "last_processed_block",
			Help:      "Highest block number whose events have been applied.",
		}, []string{"chain_id"}),
		HeartbeatMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolmirror",
			Subsystem: "stream",
			Name:      "heartbeat_misses_total",
			Help:      "Missed heartbeat pings observed before a reconnect.",
		}, []string{"chain_id"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolmirror",
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Subscription reconnect attempts.",
		}, []string{"chain_id"}),
	}
	reg.MustRegister(m.LogsApplied, m.ApplyErrors, m.Cursor, m.HeartbeatMisses, m.Reconnects)
	return m
}
