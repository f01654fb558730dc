package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/api/handlers"
	"github.com/skimzy/skimzy/internal/api/middleware"
	"github.com/skimzy/skimzy/internal/metrics"
)

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	RateLimiter    *middleware.KeyedRateLimiter
	IngestHandler  *handlers.IngestHandler
	LibraryHandler *handlers.LibraryHandler
	ChatHandler    *handlers.ChatHandler
	AuthHandler    *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxJSONBytes = 1 << 20

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodyBytes(middleware.BodyLimits{
		Default: maxJSONBytes,
		Routes:  map[string]int64{"/upload-pdf": handlers.MaxPDFBytes + maxJSONBytes},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
		r.Post("/signup", cfg.AuthHandler.Signup)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		r.Use(middleware.RateLimit(cfg.RateLimiter))

		r.Post("/generate-from-url", cfg.IngestHandler.IngestURL)
		r.Post("/upload-pdf", cfg.IngestHandler.IngestPDF)

		r.Route("/library", func(r chi.Router) {
			r.Get("/", cfg.LibraryHandler.List)
			r.Get("/{id}", cfg.LibraryHandler.Get)
			r.Delete("/{id}", cfg.LibraryHandler.Delete)
			r.Get("/{id}/source", cfg.LibraryHandler.Source)
			r.Post("/{id}/reindex", cfg.LibraryHandler.Reindex)
		})

		r.Post("/ask-question", cfg.ChatHandler.Ask)
		r.Get("/chat-history/{library_item_id}", cfg.ChatHandler.History)

		r.Route("/apikeys", func(r chi.Router) {
			r.Get("/", cfg.AuthHandler.ListAPIKeys)
			r.Post("/", cfg.AuthHandler.CreateAPIKey)
		})
	})

	return r
}
