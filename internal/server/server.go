// Package server provides the HTTP server and routing for papertrade.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/di"
	accounthandlers "github.com/aristath/papertrade/internal/modules/accounts/handlers"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
	quotehandlers "github.com/aristath/papertrade/internal/modules/quotes/handlers"
	tradinghandlers "github.com/aristath/papertrade/internal/modules/trading/handlers"
	"github.com/aristath/papertrade/internal/scheduler"
	"github.com/aristath/papertrade/internal/web"
)

const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Scheduler *scheduler.Scheduler
	Renderer  *web.Renderer
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	renderer       *web.Renderer
	systemHandlers *SystemHandlers
	port           int
	devMode        bool
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		renderer:  cfg.Renderer,
		port:      cfg.Port,
		devMode:   cfg.DevMode,
		systemHandlers: NewSystemHandlers(
			[]SystemDatabase{cfg.Container.LedgerDB, cfg.Container.CacheDB},
			cfg.Scheduler,
			cfg.Container.EventBus,
			cfg.Log,
		),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// No Read/WriteTimeout: they would cut the event feed off.
		// Every other route runs behind middleware.Timeout.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.CORSAllowedOrigins) > 0 {
		origins = s.cfg.CORSAllowedOrigins
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}

	// Balances change on every trade, never let a browser or proxy cache a page
	s.router.Use(middleware.NoCache)

	// Resolve the session cookie for every route below
	s.router.Use(s.container.SessionManager.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	sessionManager := s.container.SessionManager

	accountHandler := accounthandlers.NewHandler(s.container.AccountService, sessionManager, s.renderer, s.log)
	quoteHandler := quotehandlers.NewHandler(s.container.QuoteService, sessionManager, s.renderer, s.log)
	portfolioHandler := portfoliohandlers.NewHandler(s.container.PortfolioService, sessionManager, s.renderer, s.log)
	tradingHandler := tradinghandlers.NewHandler(
		s.container.TradingService,
		s.container.PortfolioService,
		sessionManager,
		s.renderer,
		s.container.EventBus,
		s.log,
	)

	s.router.Get("/health", s.handleHealth)

	// HTML pages
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		accountHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(sessionManager.RequireLogin)

			portfolioHandler.RegisterRoutes(r)
			quoteHandler.RegisterRoutes(r)
			tradingHandler.RegisterRoutes(r)
		})
	})

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/jobs", s.systemHandlers.HandleJobsStatus)

			// Manual job triggers are a development aid only
			if s.devMode {
				r.Post("/jobs/{name}/run", s.systemHandlers.HandleRunJob)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionManager.RequireAPIAccount)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				portfolioHandler.RegisterAPIRoutes(r)
				quoteHandler.RegisterAPIRoutes(r)
				tradingHandler.RegisterAPIRoutes(r)
			})

			// Long-lived, outside the request timeout
			tradingHandler.RegisterStreamRoutes(r)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderer.Apologize(w, http.StatusNotFound, "page not found", web.NewPage(r, sessionManager, "Apology", nil))
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "papertrade",
	}

	if err := s.container.LedgerDB.Conn().PingContext(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Ledger database unreachable")
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}

	s.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
