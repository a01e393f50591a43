package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/cache"
	"kiteretsu_web/internal/handler"
	"kiteretsu_web/internal/httputil"
	sessmw "kiteretsu_web/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	PageHandler  *handler.PageHandler
	ForumHandler *handler.ForumHandler
	AuthHandler  *handler.AuthHandler

	Bootstrap *auth.Store
	Sessions  cache.SessionCache
	Logger    zerolog.Logger

	AuthRateRPS   float64
	AuthRateBurst int
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(sessmw.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(sessmw.Session(cfg.Bootstrap, cfg.Sessions, cfg.Logger))

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", cfg.PageHandler.Landing)
	r.Get("/game", cfg.PageHandler.Game)

	r.Route("/forum", func(r chi.Router) {
		r.Get("/", cfg.ForumHandler.List)
		r.Get("/new", cfg.ForumHandler.NewForm)
		r.Post("/new", cfg.ForumHandler.Create)
		r.Get("/topic/{topicID}", cfg.ForumHandler.Show)
		r.Post("/topic/{topicID}", cfg.ForumHandler.Reply)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/", cfg.AuthHandler.Form)
		r.With(sessmw.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst)).Post("/", cfg.AuthHandler.Submit)
		r.Post("/signout", cfg.AuthHandler.SignOut)
	})

	r.NotFound(cfg.PageHandler.NotFound)

	return r
}
