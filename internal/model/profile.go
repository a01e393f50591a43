package model

import (
	"errors"
	"time"
)

// Profile is the application-level record linked one-to-one with an account.
// It is created asynchronously by a server-side trigger after sign-up, which
// is why it may not exist yet when a fresh account first shows up here. This
// app only ever reads profiles.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileSummary is the projection embedded in topic and reply rows.
type ProfileSummary struct {
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

var (
	// ErrProfileNotFound is returned when no profile row exists for an account
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileNotProvisioned is returned when the on-signup trigger has not
	// produced a profile after the full retry schedule
	ErrProfileNotProvisioned = errors.New("profile not provisioned after retries")
)
