package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kiteretsu_web/internal/model"
)

// SignUp registers a new account with email/password and a username stored in
// the account metadata. redirectTo is where the backend sends the user after
// email verification. When the project requires verification the response
// carries no tokens; the returned session then has an empty AccessToken and
// only the user filled in.
//
// Profile rows are NOT created here: a server-side trigger provisions them
// asynchronously after the account exists.
func (c *Client) SignUp(ctx context.Context, email, password, username, redirectTo string) (*model.Session, error) {
	if username == "" {
		username = model.DefaultUsername(email)
	}

	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	payload := map[string]any{
		"email":    email,
		"password": password,
		"data": map[string]any{
			"username": username,
		},
	}

	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", query, nil, payload, &resp); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	session := resp.session()
	if session.AccessToken != "" {
		c.finishSession(session)
	}
	return session, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	query := url.Values{}
	query.Set("grant_type", "password")

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	var session model.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, payload, &session); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	c.finishSession(&session)
	return &session, nil
}

// RefreshSession trades a refresh token for a fresh session. The backend
// rotates refresh tokens, so the returned session replaces the old one
// entirely.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*model.Session, error) {
	query := url.Values{}
	query.Set("grant_type", "refresh_token")

	payload := map[string]string{
		"refresh_token": refreshToken,
	}

	var session model.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, payload, &session); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.finishSession(&session)
	return &session, nil
}

// SignOut revokes the session server-side. Local state is cleared by the
// caller regardless of the outcome here.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, headers, nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// signUpResponse covers both sign-up response shapes: a full token grant
// (auto-confirm projects) and a bare user record (verification required).
type signUpResponse struct {
	model.Session
	// bare-user shape
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r *signUpResponse) session() *model.Session {
	s := r.Session
	if s.AccessToken == "" && r.ID != "" {
		s.User = model.User{ID: r.ID, Email: r.Email}
	}
	return &s
}

// finishSession fills in ExpiresAt and, when the token response omitted user
// details, recovers the account id from the access token claims. With a
// configured JWT secret the signature is verified first; without one the
// claims are read as-is, which is fine for expiry bookkeeping since the
// backend re-validates every token anyway.
func (c *Client) finishSession(s *model.Session) {
	if s.ExpiresAt.IsZero() && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}

	claims := jwt.MapClaims{}
	var err error
	if c.jwtSecret != "" {
		_, err = jwt.ParseWithClaims(s.AccessToken, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(c.jwtSecret), nil
		})
	} else {
		parser := jwt.NewParser()
		_, _, err = parser.ParseUnverified(s.AccessToken, claims)
	}
	if err != nil {
		return
	}

	if s.User.ID == "" {
		if sub, subErr := claims.GetSubject(); subErr == nil {
			s.User.ID = sub
		}
	}
	if s.ExpiresAt.IsZero() {
		if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
	}
}
