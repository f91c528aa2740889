package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// externalProvider names the identity provider in user-facing messages.
const externalProvider = "Google"

// AuthService handles password accounts: registration, login, and
// looking up the user behind a session.
//
//	AccountHandler (HTTP) → AuthService → UserRepository (DB)
//	                                   ↘ PasswordService (bcrypt)
//	                                   ↘ TokenService (session JWT)
//
// Google sign-in lives in IdentityService; both issue the same session.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the session token so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User      *model.User
	Token     string
	IsNewUser bool
}

// RegisterInput is what a registration form carries. Preferences is an
// optional seed merged over the defaults.
type RegisterInput struct {
	Email       string
	Password    string
	Preferences model.Preferences
}

// Register creates a password account and signs it in.
//
// The new account starts with {"mode": null} overlaid with any seed
// preferences, and no saved places. A taken email fails with
// apperror.ErrDuplicateKey.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if err := validatePreferences(in.Preferences); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Preferences:  model.DefaultPreferences().Merge(in.Preferences),
		SavedPlaces:  []any{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token, IsNewUser: true}, nil
}

// Login checks an email and password.
//
// An unknown email and a wrong password produce the same
// apperror.ErrInvalidCredentials. An account created through Google (no
// password digest) gets apperror.ErrExternalLogin instead, telling the user
// where to sign in. That check comes before the password is looked at, so
// an empty password gets the same answer.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, apperror.ExternalLogin(externalProvider)
	}

	switch err := s.passwords.Verify(user.PasswordHash, password); {
	case err == nil:
	case errors.Is(err, auth.ErrPasswordMismatch):
		s.logger.Info("login rejected: wrong password", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	default:
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user behind a session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
