package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fastflix/internal/handler"
	"fastflix/internal/httputil"
	authmw "fastflix/internal/transport/http/middleware"
)

// requestTimeout leaves room for one model call plus TMDB lookups.
const requestTimeout = 90 * time.Second

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler      *handler.AuthHandler
	TrialHandler     *handler.TrialHandler
	SearchHandler    *handler.SearchHandler
	WatchlistHandler *handler.WatchlistHandler
	WebhookHandler   *handler.WebhookHandler
	Tokens           authmw.TokenParser
	Entitlements     authmw.AccessChecker
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(authmw.DeviceID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/apple", cfg.AuthHandler.Apple)
		r.Post("/auth/google", cfg.AuthHandler.Google)
		r.Post("/webhooks/revenuecat", cfg.WebhookHandler.RevenueCat)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthMiddleware(cfg.Tokens))

			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Post("/trial", cfg.TrialHandler.Start)
			r.Get("/trial", cfg.TrialHandler.Status)

			r.Get("/watchlist", cfg.WatchlistHandler.List)
			r.Post("/watchlist", cfg.WatchlistHandler.Add)
			r.Delete("/watchlist/{mediaType}/{tmdbId}", cfg.WatchlistHandler.Remove)

			r.With(authmw.RequireEntitlement(cfg.Entitlements)).Post("/search", cfg.SearchHandler.Search)
		})
	})

	return r
}
