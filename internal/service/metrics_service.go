package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// violation pipelines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	violationsAccepted *prometheus.CounterVec
	duplicatesRejected *prometheus.CounterVec
	candidatesSkipped  *prometheus.CounterVec
	windowRejections   prometheus.Counter
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

	violationsAccepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "violations_accepted_total",
		Help: "Violations written, labelled by submission channel",
	}, []string{"channel"})

	duplicatesRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "violations_duplicate_total",
		Help: "Candidates rejected as duplicates, labelled by submission channel",
	}, []string{"channel"})

	candidatesSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "violations_skipped_total",
		Help: "Candidates skipped for validation reasons, labelled by submission channel",
	}, []string{"channel"})

	windowRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "absence_window_rejections_total",
		Help: "Absence batches rejected outside the submission windows",
	})

	registry.MustRegister(requestDuration, requestTotal, violationsAccepted, duplicatesRejected, candidatesSkipped, windowRejections)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		violationsAccepted: violationsAccepted,
		duplicatesRejected: duplicatesRejected,
		candidatesSkipped:  candidatesSkipped,
		windowRejections:   windowRejections,
	}
}

// Handler exposes the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one HTTP request.
func (s *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// AbsenceProcessed records the outcome of one absence batch.
func (s *MetricsService) AbsenceProcessed(accepted, skipped int) {
	s.violationsAccepted.WithLabelValues("absence").Add(float64(accepted))
	s.candidatesSkipped.WithLabelValues("absence").Add(float64(skipped))
}

// AbsenceWindowRejected records a batch rejected outside the windows.
func (s *MetricsService) AbsenceWindowRejected() {
	s.windowRejections.Inc()
}

// BulkProcessed records the outcome of one bulk import batch.
func (s *MetricsService) BulkProcessed(accepted, duplicates, skipped int) {
	s.violationsAccepted.WithLabelValues("bulk").Add(float64(accepted))
	s.duplicatesRejected.WithLabelValues("bulk").Add(float64(duplicates))
	s.candidatesSkipped.WithLabelValues("bulk").Add(float64(skipped))
}
