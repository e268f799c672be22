package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil *MetricsService is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	payments        prometheus.Counter
	paymentAmount   prometheus.Counter
	otpIssued       *prometheus.CounterVec
	attendanceMarks *prometheus.CounterVec
	mailFailures    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
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

	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_payments_recorded_total",
		Help: "Payments appended to fee records",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_payments_amount_total",
		Help: "Sum of recorded payment amounts",
	})

	otpIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "password_otp_issued_total",
		Help: "Password reset codes issued",
	}, []string{"role"})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_marks_total",
		Help: "Attendance records processed by outcome",
	}, []string{"outcome"})

	mailFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_delivery_failures_total",
		Help: "Emails dropped after exhausting retries",
	}, []string{"kind"})

	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"path"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, payments, paymentAmount, otpIssued, attendanceMarks, mailFailures, rateLimited, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		payments:        payments,
		paymentAmount:   paymentAmount,
		otpIssued:       otpIssued,
		attendanceMarks: attendanceMarks,
		mailFailures:    mailFailures,
		rateLimited:     rateLimited,
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

func (m *MetricsService) RecordPayment(amount float64) {
	if m == nil {
		return
	}
	m.payments.Inc()
	m.paymentAmount.Add(amount)
}

func (m *MetricsService) RecordOTPIssued(role string) {
	if m == nil {
		return
	}
	m.otpIssued.WithLabelValues(role).Inc()
}

// RecordAttendance counts bulk-mark outcomes: marked, duplicate or failed.
func (m *MetricsService) RecordAttendance(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.attendanceMarks.WithLabelValues(outcome).Add(float64(n))
}

func (m *MetricsService) RecordMailFailure(kind string) {
	if m == nil {
		return
	}
	m.mailFailures.WithLabelValues(kind).Inc()
}

func (m *MetricsService) RecordRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(path).Inc()
}
