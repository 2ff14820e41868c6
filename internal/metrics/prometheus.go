package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_cache_hits_total",
			Help: "Cache reads served from a valid record",
		},
		[]string{"data_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_cache_misses_total",
			Help: "Cache reads that required an upstream fetch",
		},
		[]string{"data_type"},
	)

	CacheStaleServes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_cache_stale_serves_total",
			Help: "Cache reads served stale after a failed refresh",
		},
		[]string{"data_type"},
	)

	CacheFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_cache_fetch_failures_total",
			Help: "Upstream fetch failures during cache refresh",
		},
		[]string{"data_type"},
	)

	CacheRecordsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mkt_insight_cache_records_swept_total",
			Help: "Expired cache records removed by the periodic sweep",
		},
	)

	TrendComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_trend_computations_total",
			Help: "Weekly trend computations",
		},
		[]string{"data_type"},
	)

	TrendComputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mkt_insight_trend_compute_duration_seconds",
			Help:    "Weekly trend computation duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	InsightGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_generations_total",
			Help: "Insight generation runs",
		},
		[]string{"type", "status"},
	)

	InsightDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mkt_insight_generation_duration_seconds",
			Help:    "Insight generation duration including the LLM call",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	ModelResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkt_insight_model_resolutions_total",
			Help: "Model resolutions by fallback tier",
		},
		[]string{"tier"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mkt_insight_llm_request_duration_seconds",
			Help:    "Completion provider request duration",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

func Init() {
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheStaleServes)
	prometheus.MustRegister(CacheFetchFailures)
	prometheus.MustRegister(CacheRecordsSwept)
	prometheus.MustRegister(TrendComputations)
	prometheus.MustRegister(TrendComputeDuration)
	prometheus.MustRegister(InsightGenerations)
	prometheus.MustRegister(InsightDuration)
	prometheus.MustRegister(ModelResolutions)
	prometheus.MustRegister(LLMRequestDuration)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
