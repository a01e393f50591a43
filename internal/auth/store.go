// Package auth owns the session/profile bootstrap: the single source of
// truth for "who is the current user and do they have a usable profile".
// Pages read immutable snapshots; all mutation funnels through the Store so
// the asynchronous profile-provisioning trigger is invisible to them.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/model"
)

// State is the bootstrap state for one browser session.
type State int

const (
	// StateInitializing is the zero value: no session change has been
	// committed yet. Dependent pages must not act on it.
	StateInitializing State = iota

	// StateUnauthenticated means no session is present.
	StateUnauthenticated

	// StateAuthenticatedNoProfile means a session exists but the profile row
	// has not been resolved (still polling, or polling exhausted).
	StateAuthenticatedNoProfile

	// StateAuthenticatedWithProfile means session and profile are both set.
	StateAuthenticatedWithProfile
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticatedNoProfile:
		return "authenticated_no_profile"
	case StateAuthenticatedWithProfile:
		return "authenticated_with_profile"
	default:
		return "initializing"
	}
}

// Snapshot is a consistent read of one session's bootstrap state. Fields are
// copies; holders must treat it as read-only.
type Snapshot struct {
	State            State
	Session          *model.Session
	User             *model.User
	Profile          *model.Profile
	ProfileResolving bool
}

// Observer receives a snapshot synchronously after each committed mutation.
type Observer func(sid string, snap Snapshot)

// AuthAPI is the slice of the backend auth service the store drives.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password, username, redirectTo string) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ProfileResolver runs the bounded profile polling loop.
type ProfileResolver interface {
	Resolve(ctx context.Context, token, userID string) (*model.Profile, error)
}

// Store is the single-writer state container keyed by browser session id.
//
// Every session change bumps a monotonic generation and cancels the previous
// in-flight profile resolution, so a rapid sequence of sign-in/sign-out
// events can never apply a stale resolution result: a result commits only if
// its generation is still current.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	observers []Observer

	api      AuthAPI
	resolver ProfileResolver
	redirect string
	logger   zerolog.Logger
}

type entry struct {
	gen    uint64
	cancel context.CancelFunc
	snap   Snapshot
}

// NewStore creates a Store. redirectTo is the post-verification redirect
// target passed through to sign-up.
func NewStore(api AuthAPI, resolver ProfileResolver, redirectTo string, logger zerolog.Logger) *Store {
	return &Store{
		entries:  make(map[string]*entry),
		api:      api,
		resolver: resolver,
		redirect: redirectTo,
		logger:   logger,
	}
}

// Subscribe registers an observer. Observers are invoked synchronously, in
// registration order, after each committed mutation.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current state for a session id.
func (s *Store) Snapshot(sid string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sid]
	if !ok {
		return Snapshot{State: StateUnauthenticated}, false
	}
	return e.snap, true
}

// SetSession delivers a session-change notification for sid. A nil (or
// token-less) session clears the entry to Unauthenticated with the profile
// dropped immediately; any in-flight resolution is cancelled and its eventual
// result discarded. A non-nil session re-enters profile resolution from
// scratch under a new generation.
func (s *Store) SetSession(sid string, session *model.Session) {
	s.mu.Lock()
	e, ok := s.entries[sid]
	if !ok {
		e = &entry{}
		s.entries[sid] = e
	}
	e.gen++
	gen := e.gen
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if session == nil || session.AccessToken == "" {
		e.snap = Snapshot{State: StateUnauthenticated}
		snap := e.snap
		s.mu.Unlock()
		s.notify(sid, snap)
		return
	}

	user := session.User
	e.snap = Snapshot{
		State:            StateAuthenticatedNoProfile,
		Session:          session,
		User:             &user,
		ProfileResolving: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	snap := e.snap
	s.mu.Unlock()

	s.notify(sid, snap)
	go s.resolve(ctx, sid, gen, session.AccessToken, user.ID)
}

// resolve runs one profile resolution and commits the result if the session
// has not changed since it started.
func (s *Store) resolve(ctx context.Context, sid string, gen uint64, token, userID string) {
	profile, err := s.resolver.Resolve(ctx, token, userID)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	e, ok := s.entries[sid]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	e.snap.ProfileResolving = false
	if profile != nil {
		e.snap.Profile = profile
		e.snap.State = StateAuthenticatedWithProfile
	} else {
		// Resolution exhausted (diagnostic already emitted by the resolver)
		// or failed; the session stays usable but profile-gated pages will
		// block writes and prompt re-authentication.
		e.snap.Profile = nil
		e.snap.State = StateAuthenticatedNoProfile
	}
	snap := e.snap
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Str("sid", sid).Err(err).Msg("profile resolution settled without profile")
	}
	s.notify(sid, snap)
}

// SignUp registers a new account. When the backend returns a usable session
// (auto-confirm projects) it is installed immediately, which kicks off
// profile resolution; otherwise the caller should tell the user to check
// their inbox.
func (s *Store) SignUp(ctx context.Context, sid, email, password, username string) (*model.Session, error) {
	session, err := s.api.SignUp(ctx, email, password, username, s.redirect)
	if err != nil {
		return nil, err
	}
	if session.AccessToken != "" {
		s.SetSession(sid, session)
	}
	return session, nil
}

// SignIn exchanges credentials for a session and installs it.
func (s *Store) SignIn(ctx context.Context, sid, email, password string) (*model.Session, error) {
	session, err := s.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.SetSession(sid, session)
	return session, nil
}

// SignOut clears local state immediately, then revokes the session with the
// backend best-effort. The final state is Unauthenticated regardless of any
// resolution that was in flight.
func (s *Store) SignOut(ctx context.Context, sid string) {
	snap, ok := s.Snapshot(sid)
	s.SetSession(sid, nil)

	if ok && snap.Session != nil {
		if err := s.api.SignOut(ctx, snap.Session.AccessToken); err != nil {
			s.logger.Warn().Str("sid", sid).Err(err).Msg("backend sign-out failed")
		}
	}

	s.mu.Lock()
	delete(s.entries, sid)
	s.mu.Unlock()
}

// Refresh rotates an expired session through the backend and installs the
// replacement. On refresh failure the session is cleared.
func (s *Store) Refresh(ctx context.Context, sid string) (*model.Session, error) {
	snap, ok := s.Snapshot(sid)
	if !ok || snap.Session == nil {
		return nil, model.ErrNotAuthenticated
	}

	session, err := s.api.RefreshSession(ctx, snap.Session.RefreshToken)
	if err != nil {
		s.SetSession(sid, nil)
		return nil, model.ErrSessionExpired
	}
	s.SetSession(sid, session)
	return session, nil
}

func (s *Store) notify(sid string, snap Snapshot) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(sid, snap)
	}
}
