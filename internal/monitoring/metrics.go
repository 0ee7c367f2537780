package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decision metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_decisions_total",
			Help: "Total number of risk decisions by component and outcome",
		},
		[]string{"component", "outcome"},
	)

	overallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_engine_overall_score",
			Help:    "Distribution of unified overall risk scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	hardLimitOverrides = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_hard_limit_overrides_total",
			Help: "Trades rejected by a hard limit regardless of score",
		},
		[]string{"limit"},
	)

	// Detector metrics
	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_detections_total",
			Help: "Positive honeypot and owner-power detections",
		},
		[]string{"detector"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_cache_lookups_total",
			Help: "Detection cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	// Limits metrics
	dailyUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_daily_usage",
			Help: "Recorded daily usage counters",
		},
		[]string{"metric"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(overallScore)
	prometheus.MustRegister(hardLimitOverrides)
	prometheus.MustRegister(detectionsTotal)
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(dailyUsage)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "rejected"
}

// RecordDecision records the verdict of one component
func RecordDecision(component string, allowed bool) {
	decisionsTotal.WithLabelValues(component, outcome(allowed)).Inc()
}

// ObserveOverallScore records a unified overall score
func ObserveOverallScore(score int) {
	overallScore.Observe(float64(score))
}

// RecordHardLimit records a hard-limit override
func RecordHardLimit(limit string) {
	hardLimitOverrides.WithLabelValues(limit).Inc()
}

// RecordDetection records a positive detection
func RecordDetection(detector string) {
	detectionsTotal.WithLabelValues(detector).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

// UpdateDailyUsage publishes the recorded daily counters
func UpdateDailyUsage(volumeUSD float64, trades int, lossesUSD float64) {
	dailyUsage.WithLabelValues("volume_usd").Set(volumeUSD)
	dailyUsage.WithLabelValues("trades").Set(float64(trades))
	dailyUsage.WithLabelValues("losses_usd").Set(lossesUSD)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
