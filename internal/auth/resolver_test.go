package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/model"
)

// =============================================================================
// MOCK PROFILE SOURCE
// =============================================================================

type mockProfileSource struct {
	fetchFn func(ctx context.Context, token, userID string) (*model.Profile, error)

	calls     int
	callTimes []time.Time
}

func (m *mockProfileSource) ProfileByUserID(ctx context.Context, token, userID string) (*model.Profile, error) {
	m.calls++
	m.callTimes = append(m.callTimes, time.Now())
	if m.fetchFn != nil {
		return m.fetchFn(ctx, token, userID)
	}
	return nil, model.ErrProfileNotFound
}

func testProfile(userID string) *model.Profile {
	return &model.Profile{ID: "profile-1", UserID: userID, Username: "alice"}
}

// =============================================================================
// RESOLVE TESTS
// =============================================================================

func TestResolver_SuccessOnFirstAttempt(t *testing.T) {
	src := &mockProfileSource{
		fetchFn: func(ctx context.Context, token, userID string) (*model.Profile, error) {
			return testProfile(userID), nil
		},
	}
	r := NewResolver(src, 7, time.Millisecond, zerolog.Nop())

	profile, err := r.Resolve(context.Background(), "token", "user-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if profile == nil || profile.UserID != "user-1" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if src.calls != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", src.calls)
	}
}

func TestResolver_StopsImmediatelyOnSuccess(t *testing.T) {
	// Profile appears on attempt 3: exactly 3 fetches, none after success,
	// and the waits before success follow the increasing schedule.
	base := 10 * time.Millisecond
	src := &mockProfileSource{}
	src.fetchFn = func(ctx context.Context, token, userID string) (*model.Profile, error) {
		if src.calls < 3 {
			return nil, model.ErrProfileNotFound
		}
		return testProfile(userID), nil
	}
	r := NewResolver(src, 7, base, zerolog.Nop())

	start := time.Now()
	profile, err := r.Resolve(context.Background(), "token", "user-1")
	elapsed := time.Since(start)

	if err != nil || profile == nil {
		t.Fatalf("expected profile, got profile=%v err=%v", profile, err)
	}
	if src.calls != 3 {
		t.Errorf("expected exactly 3 fetches, got %d", src.calls)
	}
	// Waited base after attempt 1 and 2*base after attempt 2.
	if elapsed < 3*base {
		t.Errorf("expected at least %v of backoff, got %v", 3*base, elapsed)
	}

	// Gaps between attempts must strictly increase.
	if len(src.callTimes) == 3 {
		first := src.callTimes[1].Sub(src.callTimes[0])
		second := src.callTimes[2].Sub(src.callTimes[1])
		if second <= first {
			t.Errorf("expected strictly increasing delays, got %v then %v", first, second)
		}
	}
}

func TestResolver_ExhaustsAttemptsAndEmitsOneDiagnostic(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	src := &mockProfileSource{} // always ErrProfileNotFound
	r := NewResolver(src, 5, time.Millisecond, logger)

	profile, err := r.Resolve(context.Background(), "token", "user-1")
	if profile != nil {
		t.Fatalf("expected no profile, got %+v", profile)
	}
	if err != model.ErrProfileNotProvisioned {
		t.Fatalf("expected ErrProfileNotProvisioned, got %v", err)
	}
	if src.calls != 5 {
		t.Errorf("expected exactly 5 fetches, got %d", src.calls)
	}

	diagnostics := strings.Count(logs.String(), "profile not found after all attempts")
	if diagnostics != 1 {
		t.Errorf("expected exactly 1 diagnostic, got %d (logs: %s)", diagnostics, logs.String())
	}
}

func TestResolver_TransientErrorsKeepPolling(t *testing.T) {
	src := &mockProfileSource{}
	src.fetchFn = func(ctx context.Context, token, userID string) (*model.Profile, error) {
		if src.calls < 2 {
			return nil, context.DeadlineExceeded // transient network-ish error
		}
		return testProfile(userID), nil
	}
	r := NewResolver(src, 7, time.Millisecond, zerolog.Nop())

	profile, err := r.Resolve(context.Background(), "token", "user-1")
	if err != nil || profile == nil {
		t.Fatalf("expected profile despite transient error, got profile=%v err=%v", profile, err)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 fetches, got %d", src.calls)
	}
}

func TestResolver_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	src := &mockProfileSource{}
	src.fetchFn = func(ctx context.Context, token, userID string) (*model.Profile, error) {
		cancel() // cancel while the resolver is about to wait
		return nil, model.ErrProfileNotFound
	}
	r := NewResolver(src, 7, 50*time.Millisecond, zerolog.Nop())

	_, err := r.Resolve(ctx, "token", "user-1")
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected polling to stop after cancellation, got %d fetches", src.calls)
	}
}

func TestResolver_DefaultsApplied(t *testing.T) {
	r := NewResolver(&mockProfileSource{}, 0, 0, zerolog.Nop())
	if r.maxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", DefaultMaxAttempts, r.maxAttempts)
	}
	if r.baseDelay != DefaultBaseDelay {
		t.Errorf("expected default base delay %v, got %v", DefaultBaseDelay, r.baseDelay)
	}
}
