package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/airsial/opshub/internal/archive"
	"github.com/airsial/opshub/internal/assistant"
	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/internal/metrics"
	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/internal/session"
	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
	"github.com/airsial/opshub/internal/users"
	"github.com/airsial/opshub/pkg/logger"
)

// Router is the API router.
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// NewRouter creates the API router over the full service set.
func NewRouter(
	cfg *config.Config,
	recordStore *records.Store,
	userStore *users.Store,
	sessions *session.Manager,
	statsSvc *stats.Service,
	assistantSvc *assistant.Service,
	archives archive.Store,
	audit *sqlite.AuditStorage,
	m *metrics.Metrics,
	log *logger.Logger,
) *Router {
	return &Router{
		handler:    NewHandler(cfg, recordStore, userStore, sessions, statsSvc, assistantSvc, archives, audit, m, log),
		middleware: NewMiddleware(sessions, m, log),
		config:     cfg,
		metrics:    m,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the assembled HTTP handler.
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))
	router.Use(r.middleware.Metrics)

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Open endpoints
		router.Post("/auth/login", r.handler.Login)
		router.Get("/health", r.handler.Health)

		// Everything else requires a session
		router.Group(func(router chi.Router) {
			router.Use(r.middleware.Authenticate)

			router.Post("/auth/logout", r.handler.Logout)
			router.Get("/auth/me", r.handler.Me)

			// User management
			router.Get("/users", r.handler.ListUsers)
			router.Post("/users", r.handler.CreateUser)
			router.Delete("/users/{username}", r.handler.DeleteUser)

			// Record collections
			router.Get("/records/{collection}", r.handler.ListRecords)
			router.Post("/records/{collection}", r.handler.CreateRecord)
			router.Get("/records/{collection}/export", r.handler.ExportRecords)
			router.Get("/records/{collection}/template", r.handler.TemplateCSV)
			router.Post("/records/{collection}/import", r.handler.ImportRecords)
			router.Delete("/records/{collection}/range", r.handler.DeleteRange)
			router.Get("/records/{collection}/{id:[0-9]+}", r.handler.GetRecord)

			// Data package export and archives
			router.Get("/export/package", r.handler.ExportPackage)
			router.Post("/export/archive", r.handler.CreateArchive)
			router.Get("/archives", r.handler.ListArchives)
			router.Get("/archives/{key}", r.handler.GetArchive)
			router.Delete("/archives/{key}", r.handler.DeleteArchive)

			// Dashboard and assistant
			router.Get("/dashboard", r.handler.Dashboard)
			router.Post("/assistant/query", r.handler.AssistantQuery)
			router.Get("/assistant/history", r.handler.AssistantHistory)
			router.Delete("/assistant/history", r.handler.ClearAssistantHistory)

			// Audit trail
			router.Get("/audit", r.handler.AuditEvents)

			// Configuration
			router.Get("/config", r.handler.GetConfig)
		})
	})

	// Prometheus scrape endpoint
	if r.config.Metrics.Enabled && r.metrics != nil {
		router.Handle("/metrics", r.metrics.Handler())
	}

	// Serve static files from the configured directory
	staticHandler := NewStaticFileHandler(r.config.Server.StaticDir, r.logger)
	router.Handle("/*", staticHandler)

	return router
}
