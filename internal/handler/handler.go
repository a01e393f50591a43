// Package handler contains the page handlers. Each page reads the bootstrap
// snapshot from the request context, issues its data calls, and renders an
// HTML template; no page mutates bootstrap state directly.
package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/model"
	"kiteretsu_web/internal/service"
	"kiteretsu_web/internal/transport/http/middleware"
	"kiteretsu_web/internal/view"
)

// ForumAPI is the slice of the forum service the handlers use.
type ForumAPI interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTopics(ctx context.Context, filter service.TopicFilter) ([]model.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*model.Topic, error)
	ListReplies(ctx context.Context, topicID string) ([]model.Reply, error)
	IncrementViewCount(ctx context.Context, topicID string) error
	CreateTopic(ctx context.Context, session *model.Session, profile *model.Profile, req model.NewTopicRequest) (*model.Topic, error)
	CreateReply(ctx context.Context, session *model.Session, profile *model.Profile, topicID, content string) (*model.Reply, error)
}

// snapshot pulls the bootstrap snapshot off the context; requests without a
// browser session get the unauthenticated zero snapshot.
func snapshot(r *http.Request) auth.Snapshot {
	snap, ok := middleware.SnapshotFromContext(r.Context())
	if !ok {
		return auth.Snapshot{State: auth.StateUnauthenticated}
	}
	return snap
}

// page builds the common template fields from a snapshot.
func page(title string, snap auth.Snapshot) view.Page {
	p := view.Page{Title: title, SignedIn: snap.Session != nil}
	switch {
	case snap.Profile != nil:
		p.Username = snap.Profile.Username
	case snap.User != nil:
		p.Username = snap.User.UserMetadata.Username
	}
	return p
}

// render executes a template into a buffer first so a template failure can
// still produce a clean 500 instead of a half-written page.
func render(w http.ResponseWriter, logger zerolog.Logger, renderer *view.Renderer, status int, tmpl string, data any) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, tmpl, data); err != nil {
		logger.Error().Err(err).Str("template", tmpl).Msg("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorMessage maps an error to the text shown to the user: backend messages
// are surfaced verbatim, everything else gets the error's own text.
func errorMessage(err error) string {
	if apiErr, ok := service.IsBackendError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}
