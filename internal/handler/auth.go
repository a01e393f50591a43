package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/cache"
	"kiteretsu_web/internal/transport/http/middleware"
	"kiteretsu_web/internal/view"
)

// AuthHandler serves the sign-in/sign-up page and the sign-out action.
// Credential handling is delegated entirely to the bootstrap store; this
// handler only shapes forms and surfaces the backend's error messages.
type AuthHandler struct {
	store    *auth.Store
	sessions cache.SessionCache
	renderer *view.Renderer
	logger   zerolog.Logger
}

func NewAuthHandler(store *auth.Store, sessions cache.SessionCache, renderer *view.Renderer, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    store,
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
	}
}

type authPageData struct {
	view.Page
	IsSignUp bool
	Email    string
	Username string
	Error    string
	Notice   string
}

// Form handles GET /auth. ?signup=true selects the sign-up variant. Users
// who already hold a session are sent home.
func (h *AuthHandler) Form(w http.ResponseWriter, r *http.Request) {
	snap := snapshot(r)
	if snap.Session != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := authPageData{
		Page:     page("Sign In", snap),
		IsSignUp: r.URL.Query().Get("signup") == "true",
	}
	render(w, h.logger, h.renderer, http.StatusOK, "auth.html", data)
}

// Submit handles POST /auth for both modes. On failure the backend's own
// message is shown inline; on success the browser is redirected home, where
// the fresh session (and its profile resolution) is already in place.
func (h *AuthHandler) Submit(w http.ResponseWriter, r *http.Request) {
	mode := r.FormValue("mode")
	email := r.FormValue("email")
	password := r.FormValue("password")
	username := r.FormValue("username")
	isSignUp := mode == "signup"

	fail := func(message string) {
		data := authPageData{
			Page:     page("Sign In", snapshot(r)),
			IsSignUp: isSignUp,
			Email:    email,
			Username: username,
			Error:    message,
		}
		render(w, h.logger, h.renderer, http.StatusOK, "auth.html", data)
	}

	if email == "" || password == "" {
		fail("Email and password are required")
		return
	}

	sid := middleware.EnsureSessionID(w, r)

	if isSignUp {
		session, err := h.store.SignUp(r.Context(), sid, email, password, username)
		if err != nil {
			fail(errorMessage(err))
			return
		}
		if session.AccessToken == "" {
			// Verification required: no session yet, nothing to mirror.
			data := authPageData{
				Page:     page("Sign Up", snapshot(r)),
				IsSignUp: true,
				Email:    email,
				Notice:   "Check your inbox to confirm your email, then sign in.",
			}
			render(w, h.logger, h.renderer, http.StatusOK, "auth.html", data)
			return
		}
		if err := h.sessions.Put(r.Context(), sid, session); err != nil {
			h.logger.Warn().Err(err).Msg("session record store failed")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session, err := h.store.SignIn(r.Context(), sid, email, password)
	if err != nil {
		fail(errorMessage(err))
		return
	}
	if err := h.sessions.Put(r.Context(), sid, session); err != nil {
		h.logger.Warn().Err(err).Msg("session record store failed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOut handles POST /auth/signout: local state first, then best-effort
// revocation, then the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if sid, ok := middleware.SessionIDFromContext(r.Context()); ok {
		h.store.SignOut(r.Context(), sid)
		if err := h.sessions.Delete(r.Context(), sid); err != nil {
			h.logger.Warn().Err(err).Msg("session record delete failed")
		}
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
