package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/fleet-mx-api/internal/models"
)

// MetricsService owns the Prometheus registry for HTTP, cache and scheduler metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	recordsPlaced   *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	refreshDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_refresh_duration_seconds",
		Help:    "Duration of maintenance planning passes",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"scope"})

	recordsPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_records_placed_total",
		Help: "Maintenance records placed by the planner",
	}, []string{"tier", "mode"})

	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_occurrences_skipped_total",
		Help: "Future occurrences skipped for lack of a slot",
	}, []string{"tier", "reason"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_conflicts_resolved_total",
		Help: "Records repaired after a flight conflict",
	}, []string{"tier", "action"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		refreshDuration, recordsPlaced, skipped, conflicts, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		refreshDuration: refreshDuration,
		recordsPlaced:   recordsPlaced,
		skipped:         skipped,
		conflicts:       conflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRefresh records the duration of an aircraft or fleet refresh.
func (m *MetricsService) ObserveRefresh(scope string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// RecordPlaced counts records placed for a tier.
func (m *MetricsService) RecordPlaced(tier models.CheckTier, mode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsPlaced.WithLabelValues(string(tier), mode).Add(float64(count))
}

// RecordSkipped counts occurrences left unplaced.
func (m *MetricsService) RecordSkipped(tier models.CheckTier, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.skipped.WithLabelValues(string(tier), reason).Add(float64(count))
}

// RecordConflict counts a repaired flight conflict.
func (m *MetricsService) RecordConflict(tier models.CheckTier, action string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(string(tier), action).Inc()
}
