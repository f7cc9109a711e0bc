package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the engine emits.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Scoring
	ScoreRequestsTotal CounterVec
	ScoreDuration      HistogramVec
	ScoreDistribution  HistogramVec
	BatchSizes         HistogramVec

	// Mining
	MiningRunsTotal  CounterVec
	MiningDuration   HistogramVec
	MinedRules       GaugeVec
	CorpusSize       GaugeVec

	// Recommendation
	RecommendationRequestsTotal CounterVec
	RecommendationDuration      HistogramVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Ingestion
	BasketsIngestedTotal CounterVec
	IngestLagSeconds     GaugeVec

	// Errors
	ErrorsTotal CounterVec
}

var (
	httpDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	miningDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300}
	scoreBuckets          = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	batchSizeBuckets      = []float64{1, 5, 10, 25, 50, 100, 250, 500}
)

// NewAppMetrics registers all engine metrics on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.ScoreRequestsTotal = collector.RegisterCounter("score_requests_total", "Product scoring requests", "niche", "status")
	m.ScoreDuration = collector.RegisterHistogram("score_duration_seconds", "Product scoring duration", httpDurationBuckets, "niche")
	m.ScoreDistribution = collector.RegisterHistogram("score_overall_value", "Distribution of overall scores", scoreBuckets, "niche")
	m.BatchSizes = collector.RegisterHistogram("score_batch_size", "Batch scoring request sizes", batchSizeBuckets)

	m.MiningRunsTotal = collector.RegisterCounter("mining_runs_total", "Association mining runs", "status")
	m.MiningDuration = collector.RegisterHistogram("mining_duration_seconds", "Association mining duration", miningDurationBuckets)
	m.MinedRules = collector.RegisterGauge("mining_rules", "Rules produced by the last mining run")
	m.CorpusSize = collector.RegisterGauge("mining_corpus_baskets", "Baskets in the last mining corpus")

	m.RecommendationRequestsTotal = collector.RegisterCounter("recommendation_requests_total", "Recommendation requests", "operation", "status")
	m.RecommendationDuration = collector.RegisterHistogram("recommendation_duration_seconds", "Recommendation query duration", httpDurationBuckets, "operation")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "operation")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "operation")

	m.BasketsIngestedTotal = collector.RegisterCounter("baskets_ingested_total", "Order baskets consumed from the stream", "status")
	m.IngestLagSeconds = collector.RegisterGauge("ingest_lag_seconds", "Age of the last ingested basket")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// RecordHTTPRequest observes one completed request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScore observes one scoring call.
func (m *AppMetrics) RecordScore(niche string, overall float64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.ScoreRequestsTotal.WithLabelValues(niche, status).Inc()
	m.ScoreDuration.WithLabelValues(niche).Observe(duration.Seconds())
	if err == nil {
		m.ScoreDistribution.WithLabelValues(niche).Observe(overall)
	}
}

// RecordMiningRun observes one mining run.
func (m *AppMetrics) RecordMiningRun(corpusSize, ruleCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.MiningRunsTotal.WithLabelValues(status).Inc()
	m.MiningDuration.WithLabelValues().Observe(duration.Seconds())
	if err == nil {
		m.MinedRules.WithLabelValues().Set(float64(ruleCount))
		m.CorpusSize.WithLabelValues().Set(float64(corpusSize))
	}
}

// RecordRecommendation observes one analyzer query.
func (m *AppMetrics) RecordRecommendation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RecommendationRequestsTotal.WithLabelValues(operation, status).Inc()
	m.RecommendationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBasketIngest counts one consumed basket by outcome and, for stored
// baskets with a known event time, updates the ingest lag gauge.
func (m *AppMetrics) RecordBasketIngest(status string, lag time.Duration) {
	m.BasketsIngestedTotal.WithLabelValues(status).Inc()
	if lag >= 0 {
		m.IngestLagSeconds.WithLabelValues().Set(lag.Seconds())
	}
}

// RecordCacheAccess counts a hit or miss for an operation's cache.
func (m *AppMetrics) RecordCacheAccess(operation string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(operation).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(operation).Inc()
	}
}

// RecordError counts one error against a component.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
