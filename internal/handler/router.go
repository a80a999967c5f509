package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// RouterConfig holds what the API router is built from.
type RouterConfig struct {
	Logger     *logger.Logger
	Workspaces *service.Workspaces
	Directory  *service.Directory
	Analytics  *service.Analytics

	// Optional; nil when the event log is disabled.
	Activity ActivitySource
	NATS     Checker

	AuthEnabled       bool
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	AllowedOrigins    []string
	Heartbeat         time.Duration
}

// NewRouter wires every endpoint of the API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	healthHandler := NewHealthHandler(cfg.NATS)
	sessionHandler := NewSessionHandler(cfg.Workspaces, log)
	messageHandler := NewMessageHandler(cfg.Workspaces, log)
	workspaceHandler := NewWorkspaceHandler(cfg.Workspaces)
	streamHandler := NewStreamHandler(cfg.Workspaces, log, cfg.Heartbeat)
	adminHandler := NewAdminHandler(cfg.Directory, cfg.Analytics, cfg.Activity, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins...))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		} else {
			r.Use(middleware.Anonymous)
		}
		if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/new", sessionHandler.NewChat)
			r.Get("/active", sessionHandler.Active)
			r.Put("/active", sessionHandler.SetActive)
			r.Get("/{id}", sessionHandler.Get)
		})

		r.Post("/messages", messageHandler.Send)
		r.Get("/stream", streamHandler.Stream)
		r.Get("/state", workspaceHandler.State)
		r.Get("/view", workspaceHandler.View)
		r.Put("/view", workspaceHandler.UpdateView)
		r.Get("/settings", workspaceHandler.Settings)
		r.Put("/settings", workspaceHandler.UpdateSettings)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Get("/{id}", adminHandler.GetUser)
				r.Put("/{id}", adminHandler.UpdateUser)
				r.Delete("/{id}", adminHandler.DeleteUser)
				r.Post("/{id}/toggle", adminHandler.ToggleUser)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", adminHandler.ListTeams)
				r.Post("/", adminHandler.CreateTeam)
				r.Get("/{id}", adminHandler.GetTeam)
				r.Put("/{id}", adminHandler.UpdateTeam)
				r.Delete("/{id}", adminHandler.DeleteTeam)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", adminHandler.ListConnections)
				r.Post("/", adminHandler.AddConnection)
				r.Get("/{id}", adminHandler.GetConnection)
				r.Delete("/{id}", adminHandler.RemoveConnection)
				r.Post("/{id}/toggle", adminHandler.ToggleConnection)
				r.Post("/{id}/sync", adminHandler.SyncConnection)
			})

			r.Get("/connection-types", adminHandler.ConnectionTypes)
			r.Get("/analytics", adminHandler.Analytics)
			r.Get("/activity", adminHandler.Activity)
		})
	})

	return r
}
