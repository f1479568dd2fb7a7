package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"canvasflow/application/ports"
	"canvasflow/application/services"
	"canvasflow/infrastructure/config"
	"canvasflow/interfaces/http/rest/handlers"
	"canvasflow/interfaces/http/rest/middleware"
	ws "canvasflow/interfaces/websocket"
	"canvasflow/pkg/auth"
	"canvasflow/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	orchestrator *services.Orchestrator
	mutator      *services.NodeMutator
	workspace    ports.Workspace
	hub          *ws.Hub
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	orchestrator *services.Orchestrator,
	mutator *services.NodeMutator,
	workspace ports.Workspace,
	hub *ws.Hub,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:          cfg,
		orchestrator: orchestrator,
		mutator:      mutator,
		workspace:    workspace,
		hub:          hub,
		metrics:      metrics,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "app://obsidian.md"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health checks
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// Event feed
	router.Get("/ws", ws.ServeWS(rt.hub, rt.logger))

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authenticate())

		completionHandler := handlers.NewCompletionHandler(rt.orchestrator, rt.mutator, rt.workspace, rt.logger)
		r.Route("/completions", func(r chi.Router) {
			r.Post("/", completionHandler.Submit)
			r.Get("/", completionHandler.List)
			r.Delete("/", completionHandler.Cleanup)
			r.Delete("/{requestID}", completionHandler.Cancel)
		})

		graphHandler := handlers.NewGraphHandler(rt.mutator, rt.workspace, rt.logger)
		r.Get("/graph", graphHandler.GetGraph)
	})

	return router
}

// authenticate builds the auth middleware from configuration
func (rt *Router) authenticate() func(next http.Handler) http.Handler {
	jwtConfig := auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     rt.cfg.JWTSecret,
		Issuer:        rt.cfg.JWTIssuer,
	}

	validator, err := auth.NewJWTValidator(jwtConfig)
	if err != nil {
		if rt.cfg.EnableAuth {
			rt.logger.Error("JWT validator unavailable, rejecting all API requests", zap.Error(err))
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, `{"success":false,"error":{"code":"UNAUTHORIZED","message":"Authentication system error"}}`, http.StatusUnauthorized)
				})
			}
		}
		validator = nil
	}

	return middleware.Authenticate(validator, rt.cfg.EnableAuth, rt.logger)
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if _, ok := rt.mutator.ActiveGraph(rt.workspace); !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"no active canvas"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
