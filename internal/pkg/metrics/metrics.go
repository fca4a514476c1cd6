package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskpulse_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpulse_rate_limit_exceeded_total",
			Help: "Requests rejected by the per-IP limiter",
		},
	)

	// OTPIssued counts issuance attempts by result: issued, throttled, error.
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_otp_issued_total",
			Help: "OTP issuance attempts by result",
		},
		[]string{"result"},
	)

	// OTPVerified counts verification attempts by result: ok, rejected, error.
	OTPVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_otp_verified_total",
			Help: "OTP verification attempts by result",
		},
		[]string{"result"},
	)

	ReportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpulse_reports_created_total",
			Help: "Report creation attempts by result",
		},
		[]string{"result"},
	)

	ReportsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpulse_reports_exported_total",
			Help: "Completed report exports",
		},
	)
)
