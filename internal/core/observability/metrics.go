// Package observability holds the Prometheus vectors shared by the service.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	upstreamRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retries issued against upstream providers.",
		},
		[]string{"upstream"},
	)

	expcacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expcache_requests_total",
			Help: "Expiring cache lookups by cache name and outcome.",
		},
		[]string{"cache", "outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	citySearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_search_total",
			Help: "City text searches by the tier that answered them.",
		},
		[]string{"tier"},
	)

	cityResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_resolution_total",
			Help: "City resolutions by the strategy that produced the city.",
		},
		[]string{"source"},
	)

	datasetCities = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "city_dataset_size",
			Help: "Number of cities loaded into the search index.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		upstreamLatencySeconds, upstreamRetries,
		expcacheRequests, cacheOpTotal, redisOpDuration,
		citySearches, cityResolutions, datasetCities,
	}
}

// Init registers the service vectors on reg. Vectors are usable before (or
// without) registration; they are simply not exported.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, err error, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, result(err)).Observe(durationSeconds)
}

func IncUpstreamRetry(upstream string) {
	upstreamRetries.WithLabelValues(upstream).Inc()
}

func IncExpCache(cache, outcome string) {
	expcacheRequests.WithLabelValues(cache, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOpTotal.WithLabelValues(op, result(err)).Inc()
	redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncSearch(tier string) {
	citySearches.WithLabelValues(tier).Inc()
}

func IncResolution(source string) {
	cityResolutions.WithLabelValues(source).Inc()
}

func SetDatasetSize(n int) {
	datasetCities.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
