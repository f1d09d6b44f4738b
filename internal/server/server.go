package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/redesign"
	"roomStylerAi/internal/web"
)

// Options carries transport level settings.
type Options struct {
	Port               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	// WriteTimeout must exceed the AI timeout; zero disables it for SSE.
	WriteTimeout time.Duration
}

// New constructs the HTTP server with routes and middleware.
func New(opts Options, api redesign.Handler, screens *web.Handler) *http.Server {
	srv := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      NewRouter(opts, api, screens),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.InfoWithFields("server ready", logger.Fields{"addr": srv.Addr})
	return srv
}

// NewRouter wires middleware and routes. AI-backed endpoints are rate limited per client.
func NewRouter(opts Options, api redesign.Handler, screens *web.Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(corsHandler(opts.AllowedOrigins).Handler)

	limitAI := NewRateLimiter(opts.RateLimitPerMinute).Middleware

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/styles", api.Styles)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", api.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", api.Get)
				r.Delete("/", api.Delete)
				r.Post("/upload", api.Upload)
				r.Post("/reset", api.Reset)
				r.Post("/dismiss-error", api.DismissError)
				r.Get("/events", api.StreamEvents)
				r.Post("/export", api.Export)
				r.Group(func(r chi.Router) {
					r.Use(limitAI)
					r.Post("/style", api.SelectStyle)
					r.Post("/surprise", api.Surprise)
					r.Post("/chat", api.Chat)
					r.Get("/insights", api.Insights)
				})
			})
		})
	})

	if screens != nil {
		router.Get("/", screens.Index)
		router.Get("/messages", screens.Messages)
		router.Post("/upload", screens.Upload)
		router.Post("/reset", screens.Reset)
		router.Post("/dismiss-error", screens.DismissError)
		router.Group(func(r chi.Router) {
			r.Use(limitAI)
			r.Post("/style", screens.SelectStyle)
			r.Post("/surprise", screens.Surprise)
			r.Post("/chat", screens.Chat)
		})
	}

	return router
}

func corsHandler(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		MaxAge:         300,
	})
}
