package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/swapbnb/exchange-coordinator/internal/api/handlers"
	"github.com/swapbnb/exchange-coordinator/internal/auth"
	"github.com/swapbnb/exchange-coordinator/internal/config"
	"github.com/swapbnb/exchange-coordinator/internal/metrics"
	"github.com/swapbnb/exchange-coordinator/internal/middleware"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/services"
)

type RouterDeps struct {
	Cfg       config.Config
	Tokens    *auth.TokenManager
	Users     *services.UserService
	Homes     *services.HomeService
	Exchanges *services.ExchangeService
	Webhooks  *services.Webhooks
	Inbox     handlers.Inbox
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RequestLogger, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Users)
	homeH := handlers.NewHomeHandler(d.Homes)
	exH := handlers.NewExchangeHandler(d.Exchanges)
	hookH := handlers.NewWebhookHandler(d.Webhooks, d.Cfg.WebhookSecret)
	noteH := handlers.NewNotificationHandler(d.Inbox)
	am := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- public ----------
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// signed by the provider, not by a user token
		r.Post("/webhooks/payments", hookH.Payments)
		r.Post("/webhooks/identity", hookH.Identity)

		// ---------- authenticated ----------
		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			r.Get("/me", authH.Me)

			r.Post("/homes", homeH.Create)
			r.Get("/homes", homeH.List)
			r.Get("/homes/{id}", homeH.Get)

			r.Post("/exchanges", exH.Request)
			r.Get("/exchanges", exH.List)
			r.Get("/exchanges/{id}", exH.Get)
			r.Post("/exchanges/{id}/respond", exH.Respond)
			r.Post("/exchanges/{id}/cancel", exH.Cancel)
			r.Post("/exchanges/{id}/confirm", exH.Confirm)
			r.Post("/exchanges/{id}/payment-session", exH.PaymentSession)

			r.Post("/identity/session", exH.IdentitySession)
			r.Get("/notifications", noteH.List)

			r.With(middleware.RequireRole(models.UserRoleAdmin)).
				Post("/admin/exchanges/{id}/complete", exH.Complete)
		})
	})

	return r
}
