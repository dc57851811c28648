package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is ClawRouter's Prometheus metric set, grounded on
// BaSui01/agentflow's internal/metrics/collector.go layout: one
// CounterVec/HistogramVec per concern, registered once at construction.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	tierDecisions    *prometheus.CounterVec
	modelSelections  *prometheus.CounterVec
	fallbackChainLen prometheus.Histogram
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	dedupCoalesced   prometheus.Counter
	paymentFailures  *prometheus.CounterVec
	costSavedTotal   prometheus.Counter
	degradedDetected *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
}

// NewMetrics registers every collector under namespace and returns the
// handle call sites use to record observations.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total chat-completion requests handled, by outcome.",
		}, []string{"outcome"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),

		tierDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_tier_decisions_total",
			Help:      "Classifier tier decisions, by tier and whether a reasoning marker forced it.",
		}, []string{"tier", "forced"}),

		modelSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_selections_total",
			Help:      "Selected model per request, by model id and whether it was a fallback.",
		}, []string{"model", "fallback"}),

		fallbackChainLen: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fallback_chain_length",
			Help:      "Number of models attempted before a response was delivered.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6},
		}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Response cache hits, by cache name (response, dedup).",
		}, []string{"cache"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Response cache misses, by cache name.",
		}, []string{"cache"}),

		dedupCoalesced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_coalesced_total",
			Help:      "Requests that joined an in-flight duplicate instead of triggering a new upstream call.",
		}),

		paymentFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Payment handshake failures, by reason.",
		}, []string{"reason"}),

		costSavedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_saved_usd_total",
			Help:      "Cumulative estimated USD saved versus always routing to the premium profile's top model.",
		}),

		degradedDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Responses flagged as degraded, by detection heuristic.",
		}, []string{"heuristic"}),

		rateLimitedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_rate_limited_total",
			Help:      "429s observed per model, driving cooldown de-prioritization.",
		}, []string{"model"}),
	}
}

func (m *Metrics) ObserveRequest(outcome, tier string, seconds float64) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(tier).Observe(seconds)
}

func (m *Metrics) ObserveTierDecision(tier string, forced bool) {
	m.tierDecisions.WithLabelValues(tier, boolLabel(forced)).Inc()
}

func (m *Metrics) ObserveModelSelection(modelID string, isFallback bool) {
	m.modelSelections.WithLabelValues(modelID, boolLabel(isFallback)).Inc()
}

func (m *Metrics) ObserveFallbackChainLength(n int) {
	m.fallbackChainLen.Observe(float64(n))
}

func (m *Metrics) ObserveCacheHit(cache string)  { m.cacheHits.WithLabelValues(cache).Inc() }
func (m *Metrics) ObserveCacheMiss(cache string) { m.cacheMisses.WithLabelValues(cache).Inc() }

func (m *Metrics) ObserveDedupCoalesced() { m.dedupCoalesced.Inc() }

func (m *Metrics) ObservePaymentFailure(reason string) {
	m.paymentFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddCostSaved(usd float64) {
	if usd > 0 {
		m.costSavedTotal.Add(usd)
	}
}

func (m *Metrics) ObserveDegraded(heuristic string) {
	m.degradedDetected.WithLabelValues(heuristic).Inc()
}

func (m *Metrics) ObserveRateLimited(modelID string) {
	m.rateLimitedTotal.WithLabelValues(modelID).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
