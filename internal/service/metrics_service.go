package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and its
// recognition collaborator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	lecturesTotal   prometheus.Counter
	trainingRuns    *prometheus.CounterVec
	notifyFailures  prometheus.Counter
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

	lecturesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lectures_recorded_total",
		Help: "Total lectures recorded through the attendance pipeline",
	})

	trainingRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recognizer_training_runs_total",
		Help: "Recognizer training runs by outcome",
	}, []string{"outcome"})

	notifyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "absence_notification_failures_total",
		Help: "Absence notifications that could not be delivered",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, lecturesTotal, trainingRuns, notifyFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		lecturesTotal:   lecturesTotal,
		trainingRuns:    trainingRuns,
		notifyFailures:  notifyFailures,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one finished HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// LectureRecorded bumps the recorded lecture counter.
func (s *MetricsService) LectureRecorded() {
	s.lecturesTotal.Inc()
}

// TrainingFinished records one training run outcome ("trained", "failed").
func (s *MetricsService) TrainingFinished(outcome string) {
	s.trainingRuns.WithLabelValues(outcome).Inc()
}

// NotificationFailed bumps the failed notification counter.
func (s *MetricsService) NotificationFailed() {
	s.notifyFailures.Inc()
}
