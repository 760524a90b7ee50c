package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/pkg/models"
)

// EngineMetrics exports per-strategy counters and request latency.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	strategyResults  *prometheus.CounterVec
	strategyErrors   *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	breakerFallbacks prometheus.Counter
}

// NewEngineMetrics registers the engine collectors with reg. Collectors that
// are already registered are reused so the constructor can run more than once.
func NewEngineMetrics(reg prometheus.Registerer, logger *logrus.Logger) *EngineMetrics {
	m := &EngineMetrics{
		strategyResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dishrec_strategy_results_total",
			Help: "Dishes contributed to responses, by strategy",
		}, []string{"strategy"}),
		strategyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dishrec_strategy_errors_total",
			Help: "Strategy failures skipped during blended recommendation",
		}, []string{"strategy"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dishrec_recommendation_duration_seconds",
			Help:    "Recommendation latency by entry point",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dishrec_cache_lookups_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),
		breakerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dishrec_neighbor_fallbacks_total",
			Help: "Neighbor lookups served by the fallback source",
		}),
	}

	m.strategyResults = registerCollector(reg, m.strategyResults, logger)
	m.strategyErrors = registerCollector(reg, m.strategyErrors, logger)
	m.requestLatency = registerCollector(reg, m.requestLatency, logger)
	m.cacheLookups = registerCollector(reg, m.cacheLookups, logger)
	m.breakerFallbacks = registerCollector(reg, m.breakerFallbacks, logger)

	return m
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T, logger *logrus.Logger) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register engine metric")
	}
	return c
}

func (m *EngineMetrics) ObserveStrategyResults(strategy models.Strategy, n int) {
	if m == nil {
		return
	}
	m.strategyResults.WithLabelValues(string(strategy)).Add(float64(n))
}

func (m *EngineMetrics) ObserveStrategyError(strategy models.Strategy) {
	if m == nil {
		return
	}
	m.strategyErrors.WithLabelValues(string(strategy)).Inc()
}

func (m *EngineMetrics) ObserveRequest(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *EngineMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *EngineMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.breakerFallbacks.Inc()
}
