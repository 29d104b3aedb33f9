package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/neumaticos-whatsapp/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/neumaticos-whatsapp/internal/http/middleware"
	"github.com/wolfman30/neumaticos-whatsapp/internal/messaging"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	MessagingHandler   *messaging.Handler
	AdminConversations *handlers.AdminConversationsHandler
	AdminJobs          *handlers.AdminJobsHandler
	LiveFeed           http.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	// AdminRateLimitPerMin caps admin requests per operator. Zero disables it.
	AdminRateLimitPerMin int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.MessagingHandler == nil {
		panic("router: messaging handler cannot be nil")
	}
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.MessagingHandler.HealthCheck)
		public.Post("/webhooks/twilio/whatsapp", cfg.MessagingHandler.WhatsAppWebhook)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AdminConversations == nil && cfg.AdminJobs == nil && cfg.LiveFeed == nil {
		return r
	}

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.AdminRateLimitPerMin > 0 {
			admin.Use(httpmiddleware.RateLimit(httpmiddleware.NewRateLimiter(cfg.AdminRateLimitPerMin, cfg.AdminRateLimitPerMin/4+1)))
		}

		if h := cfg.AdminConversations; h != nil {
			admin.Route("/conversations", func(conv chi.Router) {
				conv.Get("/", h.ListConversations)
				conv.Get("/stats", h.Stats)
				conv.Route("/{id}", func(one chi.Router) {
					one.Get("/", h.GetConversation)
					one.Get("/messages", h.ListMessages)
					one.With(middleware.AllowContentType("application/json")).Group(func(write chi.Router) {
						write.Post("/pause", h.Pause)
						write.Post("/resume", h.Resume)
						write.Post("/status", h.UpdateStatus)
						write.Post("/reply", h.Reply)
					})
				})
			})
		}
		if cfg.AdminJobs != nil {
			admin.Get("/jobs/{id}", cfg.AdminJobs.GetJob)
		}
		if cfg.LiveFeed != nil {
			admin.Handle("/live", cfg.LiveFeed)
		}
	})

	return r
}
