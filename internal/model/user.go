package model

import (
	"errors"
	"strings"
	"time"
)

// User is the account record the hosted auth service embeds in its token
// responses. Accounts are created by the sign-up call, never by this app
// directly.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at"`
}

// UserMetadata is the free-form metadata attached at sign-up.
type UserMetadata struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DefaultUsername derives a username from the email local part when the
// sign-up form leaves the field blank.
func DefaultUsername(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

var (
	// ErrInvalidCredentials is returned when sign-in credentials are rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated is returned when an operation requires a signed-in user
	ErrNotAuthenticated = errors.New("not authenticated")
)
