package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docingest_documents_total",
			Help: "Documents processed, by final status",
		},
		[]string{"status"},
	)
	recordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docingest_records_total",
			Help: "Records produced by the pairing stage",
		},
	)
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docingest_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"stage"},
	)
	storeRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docingest_store_retries_total",
			Help: "Vector store inserts retried after a transient failure",
		},
	)
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docingest_queue_depth",
			Help: "Jobs waiting for a worker",
		},
	)
)
