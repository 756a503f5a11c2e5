package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ingester's Prometheus collectors.
type Metrics struct {
	Ingested *prometheus.CounterVec
	Skipped  prometheus.Counter
	Failed   *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates and registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production, a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestkit_documents_ingested_total",
			Help: "Documents successfully partitioned and delivered, by file type.",
		}, []string{"file_type"}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingestkit_documents_skipped_total",
			Help: "Documents skipped because their fingerprint was already stored.",
		}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestkit_documents_failed_total",
			Help: "Documents that failed to ingest, by stage.",
		}, []string{"stage"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestkit_ingest_duration_seconds",
			Help:    "Wall time to fingerprint, partition and deliver one document.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Ingested, m.Skipped, m.Failed, m.Duration)
	return m
}
