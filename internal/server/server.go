package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgar-filings-service/internal/config"
	"github.com/edgar-filings-service/internal/handler"
	authhandler "github.com/edgar-filings-service/internal/handler/auth"
	"github.com/edgar-filings-service/internal/middleware"
	"github.com/edgar-filings-service/internal/service"
	"github.com/edgar-filings-service/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Deps holds everything the router needs.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Accounts *service.AccountService
	Tokens   *service.TokenService
	APIKeys  *service.APIKeyService
	Limiter  middleware.Limiter
	Registry *prometheus.Registry
}

// NewRouter assembles the full middleware and route tree. Auth endpoints sit
// outside the credential middleware; everything else requires an approved
// principal and passes the rate limiter.
func NewRouter(d Deps) http.Handler {
	attempts := middleware.NewAuthAttemptLimiter(
		d.Config.AuthMaxFailures,
		d.Config.AuthFailureWindow,
		d.Config.AuthBlockDuration,
	)
	metrics := middleware.NewHTTPMetrics(d.Registry)

	authenticate := middleware.Authenticate(d.Tokens, d.APIKeys, attempts)
	rateLimit := middleware.RateLimit(d.Limiter, d.Config.RateLimitBurst)
	protect := func(h http.Handler) http.Handler {
		return authenticate(middleware.RequireApproved(rateLimit(h)))
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireJSON)
	if len(d.Config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.Config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.APIKeyHeader},
			MaxAge:         300,
		}))
	}

	r.Method(http.MethodGet, "/healthz", handler.NewHealthHandler(d.Store, d.Store, Version))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	loginGuard := middleware.LoginAttemptGuard(attempts)
	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/register", authhandler.NewRegisterHandler(d.Accounts, d.Tokens))
		r.With(loginGuard).Method(http.MethodPost, "/login", authhandler.NewLoginHandler(d.Accounts, d.Tokens))
		r.With(loginGuard).Method(http.MethodPost, "/refresh", authhandler.NewRefreshHandler(d.Tokens))

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Method(http.MethodPost, "/api-keys", authhandler.NewCreateAPIKeyHandler(d.APIKeys))
			r.Method(http.MethodGet, "/api-keys", authhandler.NewListAPIKeysHandler(d.APIKeys))
			r.Method(http.MethodDelete, "/api-keys/{id}", authhandler.NewRevokeAPIKeyHandler(d.APIKeys))
			r.Method(http.MethodGet, "/me", authhandler.MeHandler{})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Method(http.MethodGet, "/filings", handler.NewListFilingsHandler(d.Store))
		r.Method(http.MethodGet, "/companies/{cik}/facts", handler.NewCompanyFactsHandler(d.Store))
		r.Method(http.MethodGet, "/search", handler.NewSearchHandler(d.Store))
	})

	return r
}
