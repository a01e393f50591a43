package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/view"
)

// PageHandler serves the static marketing pages and the 404 catch-all.
type PageHandler struct {
	renderer *view.Renderer
	logger   zerolog.Logger
}

func NewPageHandler(renderer *view.Renderer, logger zerolog.Logger) *PageHandler {
	return &PageHandler{renderer: renderer, logger: logger}
}

type staticPageData struct {
	view.Page
}

// Landing handles GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	data := staticPageData{Page: page("Home", snapshot(r))}
	render(w, h.logger, h.renderer, http.StatusOK, "landing.html", data)
}

// Game handles GET /game
func (h *PageHandler) Game(w http.ResponseWriter, r *http.Request) {
	data := staticPageData{Page: page("Game", snapshot(r))}
	render(w, h.logger, h.renderer, http.StatusOK, "game.html", data)
}

// NotFound is the catch-all for unknown routes.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	data := staticPageData{Page: page("Not Found", snapshot(r))}
	render(w, h.logger, h.renderer, http.StatusNotFound, "not_found.html", data)
}
