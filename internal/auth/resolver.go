package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"kiteretsu_web/internal/model"
)

// Profile resolution defaults. A fresh account's profile row is provisioned
// by a server-side trigger some time after sign-up, so the first fetches can
// legitimately miss.
const (
	DefaultMaxAttempts = 7
	DefaultBaseDelay   = 500 * time.Millisecond
)

// ProfileSource fetches the profile row for an account. token is the access
// token the read is authorized with.
type ProfileSource interface {
	ProfileByUserID(ctx context.Context, token, userID string) (*model.Profile, error)
}

// Resolver polls for a profile with linearly increasing delays between
// attempts: baseDelay after the first miss, 2×baseDelay after the second,
// and so on. It stops at the first hit, on context cancellation, or after
// maxAttempts misses.
type Resolver struct {
	profiles    ProfileSource
	maxAttempts int
	baseDelay   time.Duration
	logger      zerolog.Logger
}

// NewResolver creates a Resolver. Non-positive maxAttempts or baseDelay fall
// back to the defaults.
func NewResolver(profiles ProfileSource, maxAttempts int, baseDelay time.Duration, logger zerolog.Logger) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Resolver{
		profiles:    profiles,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Resolve runs the retry loop. On exhaustion it emits exactly one error-level
// diagnostic and returns model.ErrProfileNotProvisioned; the caller settles
// in the no-profile state rather than escalating to the user.
//
// A transient fetch error counts as a miss: the loop keeps polling on the
// same schedule rather than failing fast, since the common cause right after
// sign-up is simply that the trigger has not fired yet.
func (r *Resolver) Resolve(ctx context.Context, token, userID string) (*model.Profile, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		profile, err := r.profiles.ProfileByUserID(ctx, token, userID)
		if err == nil && profile != nil {
			return profile, nil
		}
		if err != nil && !errors.Is(err, model.ErrProfileNotFound) {
			lastErr = err
		}

		if attempt == r.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * r.baseDelay
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	r.logger.Error().
		Str("user_id", userID).
		Int("attempts", r.maxAttempts).
		AnErr("last_error", lastErr).
		Msg("profile not found after all attempts; the on-signup trigger may not have fired")

	return nil, model.ErrProfileNotProvisioned
}
