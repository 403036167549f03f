package providers

import (
	"context"
	"time"
	"voiceloop/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	ObserveStageDuration(stage string, duration time.Duration)
	IncExternalCalls(service string, outcome string)
	IncGateOutcome(passed bool)
	ObserveCandidateScore(score int)
	IncMetricsFetchFailures()
	SetRecordsTotal(category string, count int)
	SetProfileVersion(version int)
	Push(ctx context.Context) error
}

type MetricsProvider struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	persistenceDuration  prometheus.Histogram
	stageDuration        *prometheus.HistogramVec
	externalCalls        *prometheus.CounterVec
	gateOutcomes         *prometheus.CounterVec
	candidateScores      prometheus.Histogram
	metricsFetchFailures prometheus.Counter
	recordsTotal         *prometheus.GaugeVec
	profileVersion       prometheus.Gauge

	pushURL string
	job     string
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveStageDuration(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncExternalCalls(service string, outcome string) {
	m.externalCalls.WithLabelValues(service, outcome).Inc()
}

func (m *MetricsProvider) IncGateOutcome(passed bool) {
	outcome := "refused"
	if passed {
		outcome = "passed"
	}
	m.gateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObserveCandidateScore(score int) {
	m.candidateScores.Observe(float64(score))
}

func (m *MetricsProvider) IncMetricsFetchFailures() {
	m.metricsFetchFailures.Inc()
}

func (m *MetricsProvider) SetRecordsTotal(category string, count int) {
	m.recordsTotal.WithLabelValues(category).Set(float64(count))
}

func (m *MetricsProvider) SetProfileVersion(version int) {
	m.profileVersion.Set(float64(version))
}

// Push sends the default registry to the configured Pushgateway. Batch passes
// exit before any scrape could happen, so this is their only export path.
func (m *MetricsProvider) Push(ctx context.Context) error {
	if m.pushURL == "" {
		return nil
	}
	return push.New(m.pushURL, m.job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx)
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceloop_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceloop_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceloop_persistence_duration_seconds",
			Help:    "Duration of document persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voiceloop_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),

		externalCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceloop_external_calls_total",
			Help: "Calls to the platform API and the generative model by outcome",
		}, []string{"service", "outcome"}),

		gateOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceloop_gate_outcomes_total",
			Help: "Authenticity gate decisions",
		}, []string{"outcome"}),

		candidateScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceloop_candidate_authenticity_score",
			Help:    "Self-assessed authenticity score of generated candidates",
			Buckets: []float64{50, 60, 70, 80, 85, 90, 93, 95, 97, 99, 100},
		}),

		metricsFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voiceloop_metrics_fetch_failures_total",
			Help: "Per-post engagement fetches that failed during refresh",
		}),

		recordsTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voiceloop_performance_records",
			Help: "Tracked performance records per category",
		}, []string{"category"}),

		profileVersion: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voiceloop_profile_version",
			Help: "Version of the current voice profile",
		}),

		pushURL: conf.Metrics.PushgatewayURL,
		job:     conf.Metrics.Job,
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) ObserveStageDuration(_ string, _ time.Duration)   {}
func (n *noopMetrics) IncExternalCalls(_ string, _ string)              {}
func (n *noopMetrics) IncGateOutcome(_ bool)                            {}
func (n *noopMetrics) ObserveCandidateScore(_ int)                      {}
func (n *noopMetrics) IncMetricsFetchFailures()                         {}
func (n *noopMetrics) SetRecordsTotal(_ string, _ int)                  {}
func (n *noopMetrics) SetProfileVersion(_ int)                          {}
func (n *noopMetrics) Push(_ context.Context) error                     { return nil }
