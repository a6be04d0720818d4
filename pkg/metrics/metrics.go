package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Create a custom registry
var registry = prometheus.NewRegistry()

// Create a registerer that uses our registry
var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		1, 5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000,
	}

	// Basic metrics (always enabled)
	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "climabill_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climabill_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"}, // "all" unless per-route metrics are enabled
	)

	// Cache metrics
	CacheRequests = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "climabill_cache_requests_total",
			Help: "Cached reads by namespace and result (hit, miss, bypass, coalesced)",
		},
		[]string{"namespace", "result"},
	)

	CacheLoadLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climabill_cache_load_latency_ms",
			Help:    "Time spent computing values on cache misses",
			Buckets: latencyBuckets,
		},
		[]string{"namespace", "outcome"},
	)

	CacheEvictions = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "climabill_cache_evictions_total",
			Help: "Expired entries removed from the cache",
		},
	)
)

// MetricsConfig holds configuration for which metrics to enable
type MetricsConfig struct {
	EnablePerRoute       bool // Per-route latency (higher cardinality)
	EnableDetailedStatus bool // Detailed status codes (vs. status classes)
}

// DefaultMetricsConfig returns default metrics configuration with safe defaults
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnablePerRoute:       false,
		EnableDetailedStatus: false,
	}
}

// Config holds the current metrics configuration
var Config MetricsConfig

var initOnce sync.Once

// Initialize registers the runtime collectors and stores cfg. Only the first
// call registers collectors.
func Initialize(cfg MetricsConfig) {
	Config = cfg
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

// RegisterCacheSize exports the number of entries held by the cache.
func RegisterCacheSize(size func() int) error {
	return registerer.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "climabill_cache_entries",
			Help: "Entries currently held by the cache, including expired ones not yet swept",
		},
		func() float64 { return float64(size()) },
	))
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registerer})
}

// GetStatusClass returns either the specific status code or its class (e.g., "2xx")
func GetStatusClass(status string) string {
	if !Config.EnableDetailedStatus {
		code, _ := strconv.Atoi(status)
		return fmt.Sprintf("%dxx", code/100)
	}
	return status
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
