// Package metrics declares the Prometheus collectors shared by the API and the
// export consumer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LikesCountLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openmusic_likes_count_lookups_total",
		Help: "Album like count reads by data source.",
	}, []string{"source"}) // source: cache, store

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openmusic_cache_errors_total",
		Help: "Cache operations that failed and were degraded.",
	}, []string{"op"})

	ExportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openmusic_exports_submitted_total",
		Help: "Playlist export requests by result.",
	}, []string{"result"}) // result: published, rejected, unavailable

	ExportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openmusic_export_jobs_total",
		Help: "Export jobs handled by the consumer, by outcome.",
	}, []string{"outcome"})

	ExportJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "openmusic_export_job_duration_seconds",
		Help:    "Duration of export job processing.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing /metrics on addr. The caller
// starts and shuts it down.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
