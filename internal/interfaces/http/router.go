package http

import (
	"time"

	"github.com/cassiomorais/paygate/internal/infrastructure/config"
	"github.com/cassiomorais/paygate/internal/infrastructure/observability"
	"github.com/cassiomorais/paygate/internal/interfaces/http/handlers"
	customMW "github.com/cassiomorais/paygate/internal/middleware"
	"github.com/cassiomorais/paygate/internal/repository/postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps wires the handlers and cross-cutting middleware onto the
// mux. AuthJWTSecret and RateLimitPerMinute are optional: an empty
// secret disables auth on the RPC surface, a zero rate limit disables
// throttling.
type RouterDeps struct {
	RPCHandler         *handlers.RPCHandler
	WebhookHandler     *handlers.WebhookHandler
	HealthHandler      *handlers.HealthHandler
	IdempotencyRepo    *postgres.IdempotencyRepository
	Metrics            *observability.Metrics
	CORSConfig         config.CORSConfig
	AuthJWTSecret      string
	RateLimitPerMinute int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.Metrics(deps.Metrics))

	if deps.RateLimitPerMinute > 0 {
		r.Use(customMW.RateLimit(deps.RateLimitPerMinute))
	}

	r.Get("/health", deps.HealthHandler.Health)
	r.Get("/health/live", deps.HealthHandler.Liveness)
	r.Get("/health/ready", deps.HealthHandler.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	// Webhook ingress is never behind auth: providers cannot present a
	// bearer token, and a wrong signature is rejected by the adapter
	// itself, not by this layer.
	r.Route("/webhook", func(r chi.Router) {
		r.Post("/zalopay", deps.WebhookHandler.ZaloPay)
		r.Post("/payos", deps.WebhookHandler.PayOS)
	})

	r.Route("/rpc", func(r chi.Router) {
		if deps.AuthJWTSecret != "" {
			r.Use(customMW.RequireAuth(deps.AuthJWTSecret))
		}
		if deps.IdempotencyRepo != nil {
			r.Use(customMW.Idempotency(deps.IdempotencyRepo))
		}

		r.Post("/create-payment-intent", deps.RPCHandler.CreatePaymentIntent)
		r.Post("/get-payment-url-by-idempotency-key", deps.RPCHandler.GetPaymentUrlByIdempotencyKey)
	})

	return r
}
