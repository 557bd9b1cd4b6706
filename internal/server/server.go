// Package server provides the HTTP server and routing for etfmonitor.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	holdingshandlers "github.com/aristath/etfmonitor/internal/modules/holdings/handlers"
)

// Config holds server dependencies
type Config struct {
	Log          zerolog.Logger
	DB           *database.DB
	Config       *config.Config
	Service      *holdings.Service
	EventManager *events.Manager
	Metrics      *Metrics
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	service        *holdings.Service
	eventManager   *events.Manager
	metrics        *Metrics
	systemHandlers *SystemHandlers
	stopMetrics    func()
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		service:        cfg.Service,
		eventManager:   cfg.EventManager,
		metrics:        metrics,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DB, cfg.Service, cfg.Config.UploadDir),
		stopMetrics:    func() {},
	}
	if cfg.EventManager != nil {
		s.stopMetrics = metrics.SubscribeTo(cfg.EventManager.Bus())
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Config.Addr(),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the event stream and dashboard socket are long-lived
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Router returns the root handler
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// the original dashboard is served from another origin
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	holdingsHandler := holdingshandlers.NewHandler(s.service, s.cfg, s.log)
	var bus *events.Bus
	if s.eventManager != nil {
		bus = s.eventManager.Bus()
	}

	s.router.Route("/api", func(r chi.Router) {
		// streaming routes stay outside the timeout and compression group
		if bus != nil {
			r.Get("/events/stream", NewEventsStreamHandler(bus, s.log).ServeHTTP)
		}
		r.Get("/dashboard/ws", NewDashboardSocket(s.service, bus, s.metrics, s.cfg.DefaultTopN, s.log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			holdingsHandler.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.stopMetrics()
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "etfmonitor",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(route, r.Method, ww.Status(), time.Since(start).Seconds())

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
