package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/auth"
	"kiteretsu_web/internal/backend"
	"kiteretsu_web/internal/cache"
	"kiteretsu_web/internal/handler"
	"kiteretsu_web/internal/service"
	sessmw "kiteretsu_web/internal/transport/http/middleware"
	"kiteretsu_web/internal/view"
)

// newFakePlatform fakes the hosted backend: the auth token endpoints plus the
// forum and profile tables. Just enough behavior for the page flows.
func newFakePlatform(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	viewCountCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"access_token": "live-token",
			"token_type": "bearer",
			"expires_in": 3600,
			"refresh_token": "live-refresh",
			"user": {"id": "user-1", "email": "alice@example.com"}
		}`))
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "profile-1", "user_id": "user-1", "username": "alice"}`))
	})
	mux.HandleFunc("GET /rest/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "c-1", "name": "General", "description": "Anything goes", "color": "#4f46e5"}]`))
	})
	mux.HandleFunc("GET /rest/v1/topics", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), "pgrst.object") {
			w.Write([]byte(`{
				"id": "t-1", "title": "Servo calibration tips", "content": "Share your calibration tricks here",
				"author_id": "profile-1", "view_count": 12, "created_at": "2026-08-01T10:00:00Z",
				"profiles": {"username": "alice"}, "categories": {"name": "General", "color": "#4f46e5"}
			}`))
			return
		}
		w.Write([]byte(`[{
			"id": "t-1", "title": "Servo calibration tips", "content": "Share your calibration tricks here",
			"reply_count": 1, "created_at": "2026-08-01T10:00:00Z",
			"profiles": {"username": "alice"}, "categories": {"name": "General", "color": "#4f46e5"}
		}]`))
	})
	mux.HandleFunc("GET /rest/v1/replies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"id": "r-1", "content": "Start with the factory offsets", "author_id": "profile-2",
			"topic_id": "t-1", "created_at": "2026-08-02T10:00:00Z", "profiles": {"username": "bob"}
		}]`))
	})
	mux.HandleFunc("POST /rest/v1/replies", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id": "r-2", "content": "Thanks!", "author_id": "profile-1", "topic_id": "t-1"}]`))
	})
	mux.HandleFunc("POST /rest/v1/rpc/increment_view_count", func(w http.ResponseWriter, r *http.Request) {
		viewCountCalls++
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &viewCountCalls
}

type app struct {
	router http.Handler
	store  *auth.Store
}

func newApp(t *testing.T, platformURL string) *app {
	t.Helper()
	logger := zerolog.Nop()

	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	client := backend.NewClient(platformURL, "anon-key", "")
	forum := service.NewForumService(client)
	profiles := service.NewProfileService(client)

	resolver := auth.NewResolver(profiles, 3, 5*time.Millisecond, logger)
	store := auth.NewStore(client, resolver, "http://localhost/", logger)
	sessions := cache.NewMemorySessionCache()

	router := NewRouter(RouterConfig{
		PageHandler:   handler.NewPageHandler(renderer, logger),
		ForumHandler:  handler.NewForumHandler(forum, renderer, logger),
		AuthHandler:   handler.NewAuthHandler(store, sessions, renderer, logger),
		Bootstrap:     store,
		Sessions:      sessions,
		Logger:        logger,
		AuthRateRPS:   100,
		AuthRateBurst: 100,
	})
	return &app{router: router, store: store}
}

func (a *app) get(t *testing.T, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *app) post(t *testing.T, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signIn runs the credential post and returns the session cookie once the
// profile has resolved.
func (a *app) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"mode": {"signin"}, "email": {"alice@example.com"}, "password": {"password123"}}
	rec := a.post(t, "/auth", form, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("sign-in: expected 303, got %d: %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessmw.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("sign-in: expected a session cookie")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, _ := a.store.Snapshot(cookie.Value)
		if snap.Profile != nil {
			return cookie
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("sign-in: profile never resolved")
	return nil
}

// =============================================================================
// PAGE FLOW TESTS
// =============================================================================

func TestRouter_HealthCheck(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	rec := a.get(t, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_StaticPages(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	for target, marker := range map[string]string{
		"/":     "KITERETSU",
		"/game": "Game",
	} {
		rec := a.get(t, target, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), marker) {
			t.Errorf("%s: marker %q missing", target, marker)
		}
	}

	rec := a.get(t, "/no/such/page", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: expected 404, got %d", rec.Code)
	}
}

func TestRouter_ForumListingAnonymous(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	rec := a.get(t, "/forum", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Servo calibration tips") {
		t.Error("topic title missing from listing")
	}
	if !strings.Contains(body, "General") {
		t.Error("category missing from listing")
	}
}

func TestRouter_TopicPageCountsOneView(t *testing.T) {
	platform, viewCalls := newFakePlatform(t)
	a := newApp(t, platform.URL)

	rec := a.get(t, "/forum/topic/t-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Servo calibration tips") {
		t.Error("topic title missing")
	}
	if !strings.Contains(body, "Start with the factory offsets") {
		t.Error("reply missing")
	}
	if *viewCalls != 1 {
		t.Errorf("expected exactly 1 view-count call, got %d", *viewCalls)
	}
}

func TestRouter_SignInThenReply(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	cookie := a.signIn(t)

	// Signed-in navigation shows the username.
	rec := a.get(t, "/forum", []*http.Cookie{cookie})
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Error("expected the username in the navigation")
	}

	form := url.Values{"content": {"Thanks!"}}
	rec = a.post(t, "/forum/topic/t-1", form, []*http.Cookie{cookie})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("reply: expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/forum/topic/t-1" {
		t.Errorf("unexpected redirect: %q", got)
	}
}

func TestRouter_NewTopicRequiresSignIn(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	rec := a.get(t, "/forum/new", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth" {
		t.Fatalf("expected redirect to /auth, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	cookie := a.signIn(t)
	rec = a.get(t, "/forum/new", []*http.Cookie{cookie})
	if rec.Code != http.StatusOK {
		t.Fatalf("signed in: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Create a New Topic") {
		t.Error("new-topic form missing")
	}
}

func TestRouter_SignOutFlow(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	cookie := a.signIn(t)

	rec := a.post(t, "/auth/signout", nil, []*http.Cookie{cookie})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// The session is gone: the next profile-gated page bounces to /auth.
	rec = a.get(t, "/forum/new", []*http.Cookie{cookie})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth" {
		t.Errorf("expected redirect to /auth after sign-out, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRouter_AuthRateLimited(t *testing.T) {
	platform, _ := newFakePlatform(t)
	a := newApp(t, platform.URL)

	// Rebuild with a tiny budget for this test.
	logger := zerolog.Nop()
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	client := backend.NewClient(platform.URL, "anon-key", "")
	store := auth.NewStore(client, auth.NewResolver(service.NewProfileService(client), 3, 5*time.Millisecond, logger), "", logger)
	sessions := cache.NewMemorySessionCache()
	router := NewRouter(RouterConfig{
		PageHandler:   handler.NewPageHandler(renderer, logger),
		ForumHandler:  handler.NewForumHandler(service.NewForumService(client), renderer, logger),
		AuthHandler:   handler.NewAuthHandler(store, sessions, renderer, logger),
		Bootstrap:     store,
		Sessions:      sessions,
		Logger:        logger,
		AuthRateRPS:   1,
		AuthRateBurst: 2,
	})
	a = &app{router: router, store: store}

	form := url.Values{"mode": {"signin"}, "email": {"alice@example.com"}, "password": {"password123"}}
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.9.9.9:4000"
		last = httptest.NewRecorder()
		a.router.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", last.Code)
	}
	body, _ := io.ReadAll(last.Body)
	if !strings.Contains(string(body), "TOO_MANY_REQUESTS") {
		t.Errorf("unexpected body: %s", body)
	}
}
