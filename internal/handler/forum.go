package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/model"
	"kiteretsu_web/internal/service"
	"kiteretsu_web/internal/view"
)

// ForumHandler serves the forum listing, topic pages, and the new-topic form.
type ForumHandler struct {
	forum    ForumAPI
	renderer *view.Renderer
	logger   zerolog.Logger
}

func NewForumHandler(forum ForumAPI, renderer *view.Renderer, logger zerolog.Logger) *ForumHandler {
	return &ForumHandler{forum: forum, renderer: renderer, logger: logger}
}

type forumPageData struct {
	view.Page
	Topics           []model.Topic
	Categories       []model.Category
	SelectedCategory string
	SearchQuery      string
}

// List handles GET /forum. Category and search text travel in the query
// string, so every filter change is a fresh fetch-and-render.
func (h *ForumHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	selectedCategory := r.URL.Query().Get("category")
	searchQuery := r.URL.Query().Get("q")

	categories, err := h.forum.ListCategories(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list categories")
		h.renderError(w, snap, err)
		return
	}

	topics, err := h.forum.ListTopics(r.Context(), service.TopicFilter{
		CategoryID: selectedCategory,
		Search:     searchQuery,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("list topics")
		h.renderError(w, snap, err)
		return
	}

	data := forumPageData{
		Page:             page("Forum", snap),
		Topics:           topics,
		Categories:       categories,
		SelectedCategory: selectedCategory,
		SearchQuery:      searchQuery,
	}
	render(w, h.logger, h.renderer, http.StatusOK, "forum.html", data)
}

type topicPageData struct {
	view.Page
	Topic      *model.Topic
	Replies    []model.Reply
	ReplyError string
	ReplyDraft string
}

// Show handles GET /forum/topic/{topicID}: the topic, its replies
// oldest-first, and exactly one view-count increment per page load.
func (h *ForumHandler) Show(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	topicID := chi.URLParam(r, "topicID")

	topic, err := h.forum.GetTopic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, model.ErrTopicNotFound) {
			data := staticPageData{Page: page("Not Found", snap)}
			render(w, h.logger, h.renderer, http.StatusNotFound, "not_found.html", data)
			return
		}
		h.logger.Error().Err(err).Str("topic", topicID).Msg("get topic")
		h.renderError(w, snap, err)
		return
	}

	replies, err := h.forum.ListReplies(r.Context(), topicID)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topicID).Msg("list replies")
		h.renderError(w, snap, err)
		return
	}

	if err := h.forum.IncrementViewCount(r.Context(), topicID); err != nil {
		// Non-fatal: the page is still served when the counter RPC fails.
		h.logger.Warn().Err(err).Str("topic", topicID).Msg("increment view count")
	}

	data := topicPageData{
		Page:    page(topic.Title, snap),
		Topic:   topic,
		Replies: replies,
	}
	render(w, h.logger, h.renderer, http.StatusOK, "topic.html", data)
}

// Reply handles POST /forum/topic/{topicID}. On success the browser is
// redirected back to the topic, which re-fetches the reply list.
func (h *ForumHandler) Reply(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	topicID := chi.URLParam(r, "topicID")

	if snap.Session == nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	if snap.Profile == nil {
		h.renderProfileError(w, snap)
		return
	}

	content := r.FormValue("content")
	_, err := h.forum.CreateReply(r.Context(), snap.Session, snap.Profile, topicID, content)
	if err == nil {
		http.Redirect(w, r, "/forum/topic/"+topicID, http.StatusSeeOther)
		return
	}

	// Re-render the page with the error inline and the draft preserved.
	topic, topicErr := h.forum.GetTopic(r.Context(), topicID)
	if topicErr != nil {
		h.renderError(w, snap, topicErr)
		return
	}
	replies, repliesErr := h.forum.ListReplies(r.Context(), topicID)
	if repliesErr != nil {
		// Non-fatal: the page re-renders with an empty list and the draft intact.
		h.logger.Warn().Err(repliesErr).Str("topic", topicID).Msg("list replies")
	}

	data := topicPageData{
		Page:       page(topic.Title, snap),
		Topic:      topic,
		Replies:    replies,
		ReplyError: errorMessage(err),
		ReplyDraft: content,
	}
	render(w, h.logger, h.renderer, http.StatusOK, "topic.html", data)
}

type newTopicPageData struct {
	view.Page
	Categories  []model.Category
	Input       model.NewTopicRequest
	FieldErrors map[string]string
	FormError   string
}

// NewForm handles GET /forum/new. The page is gated on a usable profile:
// signed-out users are sent to /auth, a still-resolving profile shows the
// loading state, and a resolution that came up empty shows the profile-error
// screen with a re-authenticate action.
func (h *ForumHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	if !h.requireProfile(w, r, snap) {
		return
	}

	categories, err := h.forum.ListCategories(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list categories")
		h.renderError(w, snap, err)
		return
	}

	data := newTopicPageData{
		Page:        page("New Topic", snap),
		Categories:  categories,
		FieldErrors: map[string]string{},
	}
	render(w, h.logger, h.renderer, http.StatusOK, "new_topic.html", data)
}

// Create handles POST /forum/new. Validation failures re-render the form
// with field-level messages and never reach the backend.
func (h *ForumHandler) Create(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	if !h.requireProfile(w, r, snap) {
		return
	}

	input := model.NewTopicRequest{
		Title:      r.FormValue("title"),
		Content:    r.FormValue("content"),
		CategoryID: r.FormValue("category_id"),
	}

	if fieldErrs := input.FieldErrors(); len(fieldErrs) > 0 {
		h.renderNewTopic(w, r, snap, input, fieldErrs, "")
		return
	}

	_, err := h.forum.CreateTopic(r.Context(), snap.Session, snap.Profile, input)
	if err != nil {
		h.logger.Error().Err(err).Msg("create topic")
		h.renderNewTopic(w, r, snap, input, map[string]string{}, errorMessage(err))
		return
	}

	http.Redirect(w, r, "/forum", http.StatusSeeOther)
}

func (h *ForumHandler) renderNewTopic(w http.ResponseWriter, r *http.Request, snap auth.Snapshot, input model.NewTopicRequest, fieldErrs map[string]string, formErr string) {
	categories, err := h.forum.ListCategories(r.Context())
	if err != nil {
		h.renderError(w, snap, err)
		return
	}
	data := newTopicPageData{
		Page:        page("New Topic", snap),
		Categories:  categories,
		Input:       input,
		FieldErrors: fieldErrs,
		FormError:   formErr,
	}
	render(w, h.logger, h.renderer, http.StatusOK, "new_topic.html", data)
}

// requireProfile enforces the profile gate for topic creation. Returns true
// when the request may proceed.
func (h *ForumHandler) requireProfile(w http.ResponseWriter, r *http.Request, snap auth.Snapshot) bool {
	if snap.Session == nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return false
	}
	if snap.ProfileResolving {
		data := staticPageData{Page: page("Loading", snap)}
		render(w, h.logger, h.renderer, http.StatusOK, "loading.html", data)
		return false
	}
	if snap.Profile == nil {
		h.renderProfileError(w, snap)
		return false
	}
	return true
}

func (h *ForumHandler) renderProfileError(w http.ResponseWriter, snap auth.Snapshot) {
	data := staticPageData{Page: page("Profile Error", snap)}
	render(w, h.logger, h.renderer, http.StatusOK, "profile_error.html", data)
}

type errorPageData struct {
	view.Page
	Message string
}

func (h *ForumHandler) renderError(w http.ResponseWriter, snap auth.Snapshot, err error) {
	data := errorPageData{
		Page:    page("Error", snap),
		Message: errorMessage(err),
	}
	render(w, h.logger, h.renderer, http.StatusInternalServerError, "error.html", data)
}
