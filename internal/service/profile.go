package service

import (
	"context"
	"fmt"

	"kiteretsu_web/internal/backend"
	"kiteretsu_web/internal/model"
)

// ProfileService reads profile rows. Profiles are never created or mutated
// here: the on-signup trigger owns provisioning.
type ProfileService struct {
	client *backend.Client
}

func NewProfileService(client *backend.Client) *ProfileService {
	return &ProfileService{client: client}
}

// ProfileByUserID fetches the profile linked to an account id, authorized
// with the account's own access token. Returns model.ErrProfileNotFound when
// the row does not exist yet, which the bootstrap's retry loop treats as
// "keep polling".
func (s *ProfileService) ProfileByUserID(ctx context.Context, token, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := s.client.From("profiles").
		Select("*").
		Eq("user_id", userID).
		Single().
		Get(ctx, token, &profile)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, model.ErrProfileNotFound
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &profile, nil
}
