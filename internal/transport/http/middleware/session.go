package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/cache"
)

// SessionCookie names the cookie carrying the browser session id. The cookie
// holds an opaque id only; tokens never leave the server.
const SessionCookie = "kiteretsu_sid"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	snapshotKey contextKey = "auth_snapshot"
	sidKey      contextKey = "session_id"
)

// Session resolves the bootstrap snapshot for the request's browser session
// and puts it on the context. It re-mirrors a session from the record cache
// after a restart, and refreshes an expired access token before the page
// runs; a refresh is just another session-change notification to the store.
func Session(store *auth.Store, sessions cache.SessionCache, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			sid := cookie.Value

			snap, ok := store.Snapshot(sid)
			if !ok {
				if rec, cacheErr := sessions.Get(r.Context(), sid); cacheErr == nil && rec != nil {
					store.SetSession(sid, rec)
					snap, _ = store.Snapshot(sid)
				} else if cacheErr != nil {
					logger.Warn().Err(cacheErr).Msg("session record load failed")
				}
			}

			if snap.Session != nil && snap.Session.Expired() {
				refreshed, refreshErr := store.Refresh(r.Context(), sid)
				if refreshErr != nil {
					logger.Info().Str("sid", sid).Err(refreshErr).Msg("session refresh failed; signing out")
					_ = sessions.Delete(r.Context(), sid)
					ClearSessionCookie(w)
				} else {
					if putErr := sessions.Put(r.Context(), sid, refreshed); putErr != nil {
						logger.Warn().Err(putErr).Msg("session record store failed")
					}
				}
				snap, _ = store.Snapshot(sid)
			}

			ctx := WithSnapshot(r.Context(), snap)
			ctx = context.WithValue(ctx, sidKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSnapshot attaches a bootstrap snapshot to a context.
func WithSnapshot(ctx context.Context, snap auth.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey, snap)
}

// SnapshotFromContext returns the bootstrap snapshot for the request, if a
// browser session was present.
func SnapshotFromContext(ctx context.Context) (auth.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotKey).(auth.Snapshot)
	return snap, ok
}

// SessionIDFromContext returns the request's browser session id, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sidKey).(string)
	return sid, ok
}

// EnsureSessionID returns the request's session id, minting a new id and
// cookie when none exists yet. Called by the auth handler right before
// sign-in/sign-up, so anonymous visitors never accumulate ids.
func EnsureSessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sid := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(cache.SessionTTL),
	})
	return sid
}

// ClearSessionCookie removes the session cookie; used at sign-out and when a
// refresh fails.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
