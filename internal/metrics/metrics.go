// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest results.
const (
	IngestOK       = "ok"
	IngestFallback = "fallback"
	IngestRejected = "rejected"
)

var (
	MergeItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "popis",
			Name:      "merge_items_total",
			Help:      "Imported items by merge outcome.",
		},
		[]string{"outcome"},
	)

	Ingests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "popis",
			Name:      "ingest_total",
			Help:      "Photo ingestions by result.",
		},
		[]string{"result"},
	)

	SnapshotSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "popis",
			Name:      "snapshot_saves_total",
			Help:      "Snapshot saves by result.",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "popis",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveMerge records the outcome counts of one merge.
func ObserveMerge(added, replaced, kept int) {
	MergeItems.WithLabelValues("added").Add(float64(added))
	MergeItems.WithLabelValues("replaced").Add(float64(replaced))
	MergeItems.WithLabelValues("kept").Add(float64(kept))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
