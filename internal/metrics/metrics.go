// Package metrics registers the importer's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osmimport_queries_total",
		Help: "Total Overpass queries issued, by query kind",
	}, []string{"kind"})
	QueryRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_query_retries_total",
		Help: "Total Overpass retry attempts after transient failures",
	})
	QueryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_query_failures_total",
		Help: "Total Overpass queries that failed after exhausting retries",
	})
	QueryDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "osmimport_query_duration_ms",
		Help:    "Overpass request duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_cache_hits_total",
		Help: "Total Overpass responses served from the redis cache",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_cache_misses_total",
		Help: "Total Overpass cache lookups that missed",
	})
	RegionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_regions_created_total",
		Help: "Total region rows inserted",
	})
	RegionsUpdatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_regions_updated_total",
		Help: "Total region rows refreshed in place",
	})
	EdgesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_edges_created_total",
		Help: "Total containment edges created",
	})
	RunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_runs_total",
		Help: "Total per-country resolution runs started",
	})
	RunErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osmimport_run_errors_total",
		Help: "Total branch or persistence errors recorded during runs",
	})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryRetriesTotal)
	prometheus.MustRegister(QueryFailuresTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RegionsCreatedTotal)
	prometheus.MustRegister(RegionsUpdatedTotal)
	prometheus.MustRegister(EdgesCreatedTotal)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunErrorsTotal)
}

// Handler exposes the registered collectors for scraping; mounted on the
// report server's /metrics route.
func Handler() http.Handler { return promhttp.Handler() }
