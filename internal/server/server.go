// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware,
// and routes, and owns every long-lived resource:
//
//	config.Config → sqldb.DB ─┬→ services → handlers → chi routes
//	              → redis     ┘ (handshake state, optional)
//
// This is the "composition root" pattern: all dependencies are constructed
// here and passed down explicitly. No package below keeps a global store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/config"
	"github.com/sakif/accessible-chennai/internal/handler"
	"github.com/sakif/accessible-chennai/internal/middleware"
	"github.com/sakif/accessible-chennai/internal/repository/sqldb"
	"github.com/sakif/accessible-chennai/internal/service"
	"github.com/sakif/accessible-chennai/internal/session"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool and, when configured, the Redis
// client. Both are closed in Close, which Start calls on the way out.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqldb.DB
	redis  *redis.Client // nil without REDIS_URL
}

// New opens storage and builds the router. It fails fast: a database or
// Redis that cannot be reached is an error here, not on the first request.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqldb.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.RedisURL != "" {
		if s.redis, err = connectRedis(cfg.RedisURL); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Handler returns the root handler, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// stateStore picks where the handshake state lives between the two legs.
func (s *Server) stateStore(tokens *auth.TokenService) session.StateStore {
	if s.redis != nil {
		return session.NewRedisStateStore(s.redis, s.config.SecureCookies)
	}
	return session.NewCookieStateStore(tokens, s.config.SecureCookies)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                           → health message (or the SPA with STATIC_DIR)
// GET    /api/health                 → health message, 503 when the database is down
// GET    /metrics                    → Prometheus
// POST   /admin/clear_db             → wipe and recreate storage
// POST   /api/register               → password sign-up        [rate limited]
// POST   /api/login                  → password sign-in        [rate limited]
// POST   /api/logout                 → clear the session cookie
// GET    /api/me                     → current user            [session]
// GET    /api/google-auth/login      → start Google sign-in
// GET    /api/google-auth/callback   → finish Google sign-in
// GET    /api/{alerts,community,routes}   → list, newest first
// POST   /api/{alerts,community,routes}   → append
// GET    /api/user/{id}/preferences  → read preferences
// POST   /api/user/{id}/preferences  → merge preferences
// POST   /api/user/{id}/mode         → set interaction mode
// *      /api/*                      → JSON 404 (never the SPA)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: Logger reads it
// 2. RealIP: the rate limiter keys on it; forwarded headers count only
//    from TRUSTED_PROXIES
// 3. Logger: logs and records metrics
// 4. Recoverer: a panic becomes a 500 (and is still logged by Logger)
// 5. CORS: answers preflights before routing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.RealIP(s.config.TrustedProxies))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSAllowedOrigins))

	// === Services ===
	tokens, err := auth.NewTokenService(s.config.SecretKey)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:        s.config.GoogleClientID,
		ClientSecret:    s.config.GoogleClientSecret,
		RedirectURL:     s.config.GoogleCallbackURL,
		ExchangeTimeout: s.config.TokenExchangeTimeout,
	})
	if !s.config.GoogleConfigured() {
		s.logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set: Google sign-in is disabled")
	}

	// DEPENDENCY CHAIN:
	//   s.db (*sqldb.DB) implements every repository interface
	//   services receive the interfaces
	//   handlers receive the services
	accounts := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	identity := service.NewIdentityService(google, s.db, tokens, s.logger)
	prefs := service.NewPreferenceService(s.db, s.logger)
	admin := service.NewAdminService(s.db, s.config.AdminToken, s.logger)
	if s.config.AdminToken == "" {
		s.logger.Warn("ADMIN_TOKEN not set: /admin/clear_db is open to anyone")
	}

	// === Handlers ===
	accountHandler := handler.NewAccountHandler(accounts, s.config.SecureCookies, s.logger)
	googleHandler := handler.NewGoogleHandler(identity, s.stateStore(tokens), s.config.ClientBaseURL, s.config.SecureCookies, s.logger)
	prefHandler := handler.NewPreferenceHandler(prefs, s.logger)
	recordHandler := handler.NewRecordHandler(
		service.NewAlertService(s.db, s.logger),
		service.NewCommunityService(s.db, s.logger),
		service.NewRouteService(s.db, s.logger),
		s.logger,
	)
	adminHandler := handler.NewAdminHandler(admin, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	limiter := middleware.NewRateLimiter(s.config.AuthRatePerMinute)

	// === Routes ===
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Post("/admin/clear_db", adminHandler.HandleClearDB)

	s.router.Route("/api", func(r chi.Router) {
		r.NotFound(handler.HandleAPINotFound)
		r.Get("/health", healthHandler.HandleHealth)

		r.With(limiter.Handler).Post("/register", accountHandler.HandleRegister)
		r.With(limiter.Handler).Post("/login", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)
		r.With(auth.RequireAuth(tokens)).Get("/me", accountHandler.HandleMe)

		r.Get("/google-auth/login", googleHandler.HandleLogin)
		r.Get("/google-auth/callback", googleHandler.HandleCallback)

		r.Get("/alerts", recordHandler.HandleListAlerts)
		r.Post("/alerts", recordHandler.HandleCreateAlert)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/community", recordHandler.HandleListCommunity)
			r.Post("/community", recordHandler.HandleCreateCommunity)
			r.Get("/routes", recordHandler.HandleListRoutes)
			r.Post("/routes", recordHandler.HandleCreateRoute)
		})

		r.Get("/user/{id}/preferences", prefHandler.HandleGet)
		r.Post("/user/{id}/preferences", prefHandler.HandleUpdate)
		r.Post("/user/{id}/mode", prefHandler.HandleSetMode)
	})

	// === Front end ===
	// With a bundle to serve, "/" belongs to the SPA and the health message
	// stays reachable at /api/health.
	if s.config.StaticDir != "" {
		if _, err := os.Stat(s.config.StaticDir); err != nil {
			return fmt.Errorf("STATIC_DIR: %w", err)
		}
		s.router.NotFound(handler.SPA(s.config.StaticDir).ServeHTTP)
	} else {
		s.router.Get("/", healthHandler.HandleHealth)
	}

	return nil
}

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully and releases storage.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close Redis and the database pool
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.db.Backend()),
			slog.Bool("redisStateStore", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases Redis and the database pool.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}
