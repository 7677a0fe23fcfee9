// Package metrics объявляет метрики prometheus сервиса и HTTP middleware для их сбора.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "examprep"

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Бизнес-метрики
var (
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Requests rejected because the daily limit was reached",
		},
		[]string{"counter", "tier"},
	)

	AnswersVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_verified_total",
			Help:      "Practice answers verified",
		},
		[]string{"result"},
	)

	ChapterTestsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chapter_tests_generated_total",
			Help:      "Chapter tests generated",
		},
	)

	MockTestsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mock_tests_started_total",
			Help:      "Mock tests started",
		},
	)

	MockTestsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mock_tests_submitted_total",
			Help:      "Mock tests submitted",
		},
		[]string{"late"},
	)

	GiftCodesRedeemed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gift_codes_redeemed_total",
			Help:      "Gift codes applied",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notification emails by kind and status",
		},
		[]string{"kind", "status"},
	)

	FeedbackSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_submitted_total",
			Help:      "Feedback entries by type",
		},
		[]string{"type"},
	)
)
