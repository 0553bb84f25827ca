package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the GPS eligibility pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	gpsEventsTotal       *prometheus.CounterVec
	attendanceTotal      *prometheus.CounterVec
	collaboratorDuration *prometheus.HistogramVec
	sweepMarkedTotal     prometheus.Counter

	cacheLatency prometheus.Observer
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
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

	gpsEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gps_events_total",
		Help: "GPS events by pipeline outcome",
	}, []string{"outcome"})

	attendanceTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_total",
		Help: "Attendance records created, by status and source",
	}, []string{"status", "source"})

	collaboratorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collaborator_request_duration_seconds",
		Help:    "Duration of collaborator service calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	sweepMarkedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "absence_sweep_marked_total",
		Help: "Students marked absent by the sweep",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	registry.MustRegister(requestDuration, requestTotal, gpsEventsTotal, attendanceTotal,
		collaboratorDuration, sweepMarkedTotal, cacheLatency, cacheHits, cacheMisses)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		gpsEventsTotal:       gpsEventsTotal,
		attendanceTotal:      attendanceTotal,
		collaboratorDuration: collaboratorDuration,
		sweepMarkedTotal:     sweepMarkedTotal,
		cacheLatency:         cacheLatency,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordGPSEvent counts one pipeline outcome (processed, rejected, duplicate,
// error, collaborator_error).
func (s *MetricsService) RecordGPSEvent(outcome string) {
	if s == nil {
		return
	}
	s.gpsEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordAttendance counts one created attendance record.
func (s *MetricsService) RecordAttendance(status, source string) {
	if s == nil {
		return
	}
	s.attendanceTotal.WithLabelValues(status, source).Inc()
}

// ObserveCollaborator records the duration of one collaborator call.
func (s *MetricsService) ObserveCollaborator(service string, duration time.Duration) {
	if s == nil {
		return
	}
	s.collaboratorDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordSweepMarked counts students marked absent by the sweep.
func (s *MetricsService) RecordSweepMarked(count int) {
	if s == nil || count <= 0 {
		return
	}
	s.sweepMarkedTotal.Add(float64(count))
}

// RecordCacheOperation tracks a cache lookup outcome.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}
