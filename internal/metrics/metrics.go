package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parrot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parrot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parrot_chat_turns_total",
			Help: "Total chat turns submitted",
		},
		[]string{"input_type"}, // "text" or "audio"
	)

	ChatStreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parrot_chat_stream_duration_seconds",
			Help:    "Model stream duration per chat turn",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SuggestionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parrot_suggestion_requests_total",
			Help: "Total suggestion requests",
		},
		[]string{"result"}, // "hit", "miss" or "error"
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parrot_webhook_events_total",
			Help: "Total identity webhook events",
		},
		[]string{"status"}, // "handled", "ignored" or "error"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parrot_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"endpoint"},
	)
)
