package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"fastflix/internal/cache"
	"fastflix/internal/config"
	"fastflix/internal/database"
	"fastflix/internal/handler"
	"fastflix/internal/model"
	"fastflix/internal/redis"
	"fastflix/internal/repository"
	"fastflix/internal/service"
	"fastflix/internal/tmdb"
	"fastflix/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// Services is everything the router and background jobs need.
type Services struct {
	Auth           *service.AuthService
	Entitlement    *service.EntitlementService
	Subscription   *service.SubscriptionService
	Watchlist      *service.WatchlistService
	Recommendation *service.RecommendationService
}

// NewServices wires repositories and services. lookup may be nil when TMDB is not configured.
func NewServices(db *sqlx.DB, cfg *config.Config, suggester service.Suggester, lookup service.TitleLookup) *Services {
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	trialRepo := repository.NewTrialRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)

	jwksClient := &stdhttp.Client{Timeout: 10 * time.Second}
	verifiers := map[model.AuthProvider]service.IdentityVerifier{
		model.AuthProviderApple:  service.NewAppleVerifier(service.NewJWKSCache(service.AppleKeysURL, jwksClient), cfg.AppleBundleIDs),
		model.AuthProviderGoogle: service.NewGoogleVerifier(service.NewJWKSCache(service.GoogleKeysURL, jwksClient), cfg.GoogleClientIDs),
	}

	return &Services{
		Auth:           service.NewAuthService(userRepo, subRepo, verifiers, cfg),
		Entitlement:    service.NewEntitlementService(userRepo, subRepo, trialRepo, cfg),
		Subscription:   service.NewSubscriptionService(subRepo, userRepo),
		Watchlist:      service.NewWatchlistService(watchlistRepo),
		Recommendation: service.NewRecommendationService(suggester, lookup),
	}
}

// NewHandler builds the full HTTP handler from services.
func NewHandler(svcs *Services, cfg *config.Config) stdhttp.Handler {
	return NewRouter(RouterConfig{
		AuthHandler:      handler.NewAuthHandler(svcs.Auth, svcs.Entitlement),
		TrialHandler:     handler.NewTrialHandler(svcs.Entitlement),
		SearchHandler:    handler.NewSearchHandler(svcs.Recommendation),
		WatchlistHandler: handler.NewWatchlistHandler(svcs.Watchlist),
		WebhookHandler:   handler.NewWebhookHandler(svcs.Subscription, cfg.RevenueCatWebhookSecret),
		Tokens:           svcs.Auth,
		Entitlements:     svcs.Entitlement,
	})
}

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Upstream clients; Redis is optional and only caches TMDB lookups
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	var lookup service.TitleLookup = tmdb.NewClient(cfg.TMDBAPIKey, cfg.TMDBBaseURL, timeout)
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("[Server] Redis unavailable, TMDB cache disabled: err=%v", err)
		} else {
			defer rdb.Close()
			lookup = cache.NewCachedLookup(rdb.Client, lookup)
			log.Printf("[Server] TMDB cache enabled")
		}
	}
	suggester := service.NewGeminiSuggester(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, timeout)

	svcs := NewServices(db, cfg, suggester, lookup)

	// 4. Background jobs
	sweeper := worker.NewExpirySweeper(svcs.Subscription, cfg.ExpirySweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	// 5. Serve until signalled
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewHandler(svcs, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
