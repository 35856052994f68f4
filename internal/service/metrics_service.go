package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP, cache and timetable instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	gridSkipped      *prometheus.CounterVec
	gridBuilds       *prometheus.CounterVec
	scheduleReplaces *prometheus.CounterVec
	enrollmentLinks  *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	gridSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_slots_skipped_total",
		Help: "Timeslots left off a grid because their subject, window or day did not resolve",
	}, []string{"grid"})

	gridBuilds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_grid_builds_total",
		Help: "Timetable grids assembled from storage",
	}, []string{"grid"})

	scheduleReplaces := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_schedule_replacements_total",
		Help: "Wholesale timeslot replacements per mode",
	}, []string{"mode"})

	enrollmentLinks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_link_changes_total",
		Help: "Student subject links added or removed",
	}, []string{"op"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		gridSkipped, gridBuilds, scheduleReplaces, enrollmentLinks, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		gridSkipped:      gridSkipped,
		gridBuilds:       gridBuilds,
		scheduleReplaces: scheduleReplaces,
		enrollmentLinks:  enrollmentLinks,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordGridBuild counts a grid build and the slots it could not place.
func (m *MetricsService) RecordGridBuild(grid string, skipped int) {
	if m == nil {
		return
	}
	m.gridBuilds.WithLabelValues(grid).Inc()
	if skipped > 0 {
		m.gridSkipped.WithLabelValues(grid).Add(float64(skipped))
	}
}

// RecordScheduleReplace counts a wholesale replace for mode.
func (m *MetricsService) RecordScheduleReplace(mode string) {
	if m == nil {
		return
	}
	m.scheduleReplaces.WithLabelValues(mode).Inc()
}

// RecordEnrollmentChange counts added and removed links.
func (m *MetricsService) RecordEnrollmentChange(added, removed int) {
	if m == nil {
		return
	}
	if added > 0 {
		m.enrollmentLinks.WithLabelValues("add").Add(float64(added))
	}
	if removed > 0 {
		m.enrollmentLinks.WithLabelValues("remove").Add(float64(removed))
	}
}
