package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes Prometheus metrics for the routing engine.
type Recorder struct {
	searches       *prometheus.CounterVec
	searchLatency  *prometheus.HistogramVec
	quoteFetches   *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	mevAnalyses    *prometheus.CounterVec
	outcomesTotal  *prometheus.CounterVec
	calibSamples   *prometheus.GaugeVec
	graphNodes     prometheus.Gauge
	graphEdges     prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		searches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeforge_route_searches_total",
				Help: "Total number of route searches by mode and result",
			},
			[]string{"mode", "result"},
		),
		searchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routeforge_search_duration_seconds",
				Help:    "Duration of route searches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		quoteFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeforge_quote_fetches_total",
				Help: "Total number of live quote fetches by outcome",
			},
			[]string{"outcome"},
		),
		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routeforge_quote_cache_hits_total",
				Help: "Quote cache hits",
			},
		),
		cacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "routeforge_quote_cache_misses_total",
				Help: "Quote cache misses",
			},
		),
		mevAnalyses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeforge_mev_analyses_total",
				Help: "MEV analyses by resulting risk tier",
			},
			[]string{"tier"},
		),
		outcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeforge_execution_outcomes_total",
				Help: "Recorded execution outcomes by risk tier and success",
			},
			[]string{"tier", "success"},
		),
		calibSamples: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "routeforge_calibration_samples",
				Help: "Calibration samples retained per risk tier",
			},
			[]string{"tier"},
		),
		graphNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "routeforge_graph_nodes",
				Help: "Token nodes in the routing graph",
			},
		),
		graphEdges: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "routeforge_graph_edges",
				Help: "Pool edges in the routing graph",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routeforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordSearch records a completed route search.
func (r *Recorder) RecordSearch(mode, result string, seconds float64) {
	r.searches.WithLabelValues(mode, result).Inc()
	r.searchLatency.WithLabelValues(mode).Observe(seconds)
}

// RecordQuoteFetch records a live quote fetch outcome (ok, infeasible, error).
func (r *Recorder) RecordQuoteFetch(outcome string) {
	r.quoteFetches.WithLabelValues(outcome).Inc()
}

// RecordCacheHit records a quote cache hit.
func (r *Recorder) RecordCacheHit() { r.cacheHits.Inc() }

// RecordCacheMiss records a quote cache miss.
func (r *Recorder) RecordCacheMiss() { r.cacheMisses.Inc() }

// RecordMEVAnalysis records an MEV analysis by tier.
func (r *Recorder) RecordMEVAnalysis(tier string) {
	r.mevAnalyses.WithLabelValues(tier).Inc()
}

// RecordOutcome records an execution outcome.
func (r *Recorder) RecordOutcome(tier string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	r.outcomesTotal.WithLabelValues(tier, s).Inc()
}

// SetCalibrationSamples sets the retained sample count for a tier.
func (r *Recorder) SetCalibrationSamples(tier string, n int) {
	r.calibSamples.WithLabelValues(tier).Set(float64(n))
}

// SetGraphSize sets the current graph dimensions.
func (r *Recorder) SetGraphSize(nodes, edges int) {
	r.graphNodes.Set(float64(nodes))
	r.graphEdges.Set(float64(edges))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
