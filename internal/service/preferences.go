package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// PreferenceService reads and merges a user's preference map.
//
// Updates are a read-merge-write against the user row with no version
// check. Two concurrent updates to the same user are last-writer-wins:
// keys written only by the losing request can be lost.
type PreferenceService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPreferenceService(users repository.UserRepository, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{users: users, logger: logger}
}

// Get returns the stored preferences, or an empty map if none were ever set.
func (s *PreferenceService) Get(ctx context.Context, userID string) (model.Preferences, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Preferences == nil {
		return model.Preferences{}, nil
	}
	return user.Preferences, nil
}

// Update shallow-merges partial over the stored preferences and returns the
// result. Keys absent from partial are kept.
//
// A "mode" key in partial must be "normal", "voice" or null; anything else
// fails with apperror.ErrInvalidMode and nothing is written.
func (s *PreferenceService) Update(ctx context.Context, userID string, partial model.Preferences) (model.Preferences, error) {
	if err := validatePreferences(partial); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Preferences = user.Preferences.Merge(partial)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/preferences: saving user %s: %w", userID, err)
	}

	s.logger.Debug("preferences updated",
		slog.String("userID", userID),
		slog.Int("keys", len(partial)),
	)
	return user.Preferences, nil
}

// SetMode sets the interaction mode and leaves every other key alone.
// Unlike Update it does not accept null: the user is choosing a mode.
func (s *PreferenceService) SetMode(ctx context.Context, userID, mode string) (model.Preferences, error) {
	m, ok := model.ParseMode(mode)
	if !ok {
		return nil, apperror.InvalidMode(mode)
	}
	return s.Update(ctx, userID, model.Preferences{model.PreferenceMode: string(m)})
}

// validatePreferences checks the one constrained key.
func validatePreferences(p model.Preferences) error {
	v, present := p[model.PreferenceMode]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return apperror.InvalidMode(fmt.Sprint(v))
	}
	if _, ok := model.ParseMode(s); !ok {
		return apperror.InvalidMode(s)
	}
	return nil
}
