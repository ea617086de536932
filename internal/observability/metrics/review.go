package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReviewMetrics contains the Prometheus metrics for API traffic, catalog
// paging, review submissions and the contribution ledger.
//
// All Record methods are safe on a nil receiver so components can run
// without metrics.
type ReviewMetrics struct {
	APIRequestsTotal   *prometheus.CounterVec   // requests by endpoint and status code
	APIRequestDuration *prometheus.HistogramVec // latency by endpoint

	PageLoadsTotal      *prometheus.CounterVec // page loads by collection and result
	StaleResponsesTotal prometheus.Counter     // page responses discarded as superseded

	SubmissionsTotal  *prometheus.CounterVec // submissions by outcome kind
	ZeroTallyRejected prometheus.Counter     // submits blocked locally for an all-zero tally

	ContributionCount prometheus.Gauge // persisted contribution counter
	LedgerSaveErrors  prometheus.Counter

	ProgressCacheTotal *prometheus.CounterVec // snapshot lookups by result (hit/miss)

	registry *prometheus.Registry
}

// NewReviewMetrics creates and registers ReviewMetrics on registry.
func NewReviewMetrics(registry *prometheus.Registry) (*ReviewMetrics, error) {
	m := &ReviewMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register review metrics: %w", err)
	}
	return m, nil
}

func (m *ReviewMetrics) initMetrics() {
	m.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetreview_api_requests_total",
			Help: "Total number of review API requests by endpoint and HTTP status (0 for transport failures)",
		},
		[]string{"endpoint", "status"},
	)

	m.APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetreview_api_request_duration_seconds",
			Help:    "Review API request latency by endpoint",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"endpoint"},
	)

	m.PageLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetreview_catalog_page_loads_total",
			Help: "Sheet listing page loads by collection and result (success, error, stale)",
		},
		[]string{"collection", "result"},
	)

	m.StaleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetreview_catalog_stale_responses_total",
			Help: "Page responses discarded because a newer page was requested",
		},
	)

	m.SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetreview_submissions_total",
			Help: "Vote submissions by outcome",
		},
		[]string{"outcome"},
	)

	m.ZeroTallyRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetreview_submissions_zero_tally_rejected_total",
			Help: "Submissions blocked locally because every candidate count was zero",
		},
	)

	m.ContributionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sheetreview_ledger_contributions",
			Help: "Number of submission attempts recorded by the local contribution ledger",
		},
	)

	m.LedgerSaveErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetreview_ledger_save_errors_total",
			Help: "Failures persisting the contribution counter",
		},
	)

	m.ProgressCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetreview_progress_cache_total",
			Help: "Progress snapshot lookups by cache result",
		},
		[]string{"result"},
	)
}

// RecordAPIRequest records one API round trip. Use status 0 when no response arrived.
func (m *ReviewMetrics) RecordAPIRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPageLoad records a catalog page load result.
func (m *ReviewMetrics) RecordPageLoad(collection, result string) {
	if m == nil {
		return
	}
	m.PageLoadsTotal.WithLabelValues(collection, result).Inc()
	if result == ResultStale {
		m.StaleResponsesTotal.Inc()
	}
}

// RecordSubmission records a resolved submission by outcome name.
func (m *ReviewMetrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordZeroTally records a submit blocked by the zero-sum guard.
func (m *ReviewMetrics) RecordZeroTally() {
	if m == nil {
		return
	}
	m.ZeroTallyRejected.Inc()
}

// SetContributionCount updates the ledger gauge.
func (m *ReviewMetrics) SetContributionCount(n int) {
	if m == nil {
		return
	}
	m.ContributionCount.Set(float64(n))
}

// RecordLedgerSaveError counts a failed counter write.
func (m *ReviewMetrics) RecordLedgerSaveError() {
	if m == nil {
		return
	}
	m.LedgerSaveErrors.Inc()
}

// RecordProgressCache records a snapshot cache hit or miss.
func (m *ReviewMetrics) RecordProgressCache(hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.ProgressCacheTotal.WithLabelValues(result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ReviewMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.APIRequestsTotal.Describe(ch)
	m.APIRequestDuration.Describe(ch)
	m.PageLoadsTotal.Describe(ch)
	m.StaleResponsesTotal.Describe(ch)
	m.SubmissionsTotal.Describe(ch)
	m.ZeroTallyRejected.Describe(ch)
	m.ContributionCount.Describe(ch)
	m.LedgerSaveErrors.Describe(ch)
	m.ProgressCacheTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ReviewMetrics) Collect(ch chan<- prometheus.Metric) {
	m.APIRequestsTotal.Collect(ch)
	m.APIRequestDuration.Collect(ch)
	m.PageLoadsTotal.Collect(ch)
	m.StaleResponsesTotal.Collect(ch)
	m.SubmissionsTotal.Collect(ch)
	m.ZeroTallyRejected.Collect(ch)
	m.ContributionCount.Collect(ch)
	m.LedgerSaveErrors.Collect(ch)
	m.ProgressCacheTotal.Collect(ch)
}
