package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/iammorganparry/clive/apps/recall/internal/llm"
	"github.com/iammorganparry/clive/apps/recall/internal/memory"
)

// Options configures the authenticated surface.
type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	db MemoryCounter,
	ollama Pinger,
	svc *memory.Service,
	modelRouter *llm.Router,
	opts Options,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	// Handlers
	healthH := NewHealthHandler(db, ollama)
	memoryH := NewMemoryHandler(svc, logger)
	chatH := NewChatHandler(svc, modelRouter, logger)
	userH := NewUserHandler(svc, logger)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
		}
		r.Use(BearerAuth(opts.APIKey))

		r.Post("/webhook", chatH.Webhook)
		r.Post("/teach", memoryH.Teach)
		r.Post("/recap", chatH.Recap)
		r.Get("/insights", chatH.Insights)
		r.Post("/compare", chatH.Compare)
		r.Post("/route", chatH.Route)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryH.List)
			r.Post("/search", memoryH.Search)
			r.Get("/{id}", memoryH.Get)
			r.Get("/{id}/links", memoryH.Links)
			r.Post("/{id}/links", memoryH.Link)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", userH.Register)
			r.Get("/{phone}", userH.Get)
			r.Get("/{phone}/summary", userH.Summary)
			r.Delete("/{phone}", userH.Delete)
		})
	})

	return r
}
