package model

import (
	"errors"
	"time"
)

// Session is the credential pair issued by the hosted auth service. Its
// renewal/expiry lifecycle is owned entirely by the backend; this app only
// mirrors it in memory for the browser session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry, with a small
// skew so a token is refreshed before the backend starts rejecting it.
func (s *Session) Expired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt.Add(-30 * time.Second))
}

var (
	// ErrSessionExpired is returned when a session can no longer be refreshed
	ErrSessionExpired = errors.New("session expired")
)
