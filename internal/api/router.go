package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/parrotlabs/parrot/internal/api/middleware"
	"github.com/parrotlabs/parrot/internal/config"
	"github.com/parrotlabs/parrot/internal/handlers"
	"github.com/parrotlabs/parrot/internal/store"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config      *config.Config
	Logger      zerolog.Logger
	DB          store.DataStore
	Redis       *store.RedisStore
	Model       handlers.ChatModel
	Transcriber handlers.Transcriber
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (requires Redis)
	if deps.Redis != nil {
		limiter := middleware.NewRateLimiter(deps.Redis.Client(), deps.Logger, middleware.RateLimiterConfig{
			Whitelist: deps.Config.RateLimitWhitelist,
		})
		r.Use(limiter.Middleware)
	}

	// CORS - the web UI reads the transcript and rate limit headers
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Transcript", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(deps.DB, deps.Redis, deps.Model, deps.Transcriber, deps.Logger)
	verifier := middleware.NewWebhookVerifier(deps.Config.ClerkWebhookSecret, deps.Redis)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Chat submission: multipart with audio, larger body allowance
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(10 << 20)) // 10MB max for WAV uploads
		r.Use(middleware.ValidateContentType("multipart/form-data"))
		r.Post("/api", h.Chat)
	})

	// JSON endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(64 << 10)) // 64KB max body
		r.Use(middleware.ValidateContentType("application/json"))
		r.Post("/api/suggestions", h.Suggestions)
		r.With(verifier.Verify).Post("/api/webhooks/clerk", h.ClerkWebhook)
	})

	return r
}
