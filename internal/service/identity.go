package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/repository"
)

// IdentityProvider is the outbound half of the handshake.
// *auth.GoogleProvider implements it; tests use a fake.
type IdentityProvider interface {
	Configured() bool
	AuthURL(state string) string
	// Authenticate exchanges an authorization code and returns the
	// verified identity it belongs to.
	Authenticate(ctx context.Context, code string) (*auth.Identity, error)
}

// HandshakeReason says why a Google sign-in failed.
type HandshakeReason string

const (
	ReasonNotConfigured  HandshakeReason = "not_configured"
	ReasonStateMismatch  HandshakeReason = "state_mismatch"
	ReasonProviderDenied HandshakeReason = "provider_denied"
	ReasonHandshakeError HandshakeReason = "handshake_error"
	ReasonNoEmailClaim   HandshakeReason = "no_email_claim"

	// ReasonEmailUnverified: the provider did not vouch for the email, so
	// it cannot be used to find or create an account.
	ReasonEmailUnverified HandshakeReason = "email_unverified"
)

// HandshakeError is returned by Begin and Complete for every failure. The
// handler renders all of them as a redirect to the client login page.
type HandshakeError struct {
	Reason HandshakeReason
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err == nil {
		return "handshake failed: " + string(e.Reason)
	}
	return fmt.Sprintf("handshake failed: %s: %v", e.Reason, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

func handshakeFailed(reason HandshakeReason, err error) *HandshakeError {
	return &HandshakeError{Reason: reason, Err: err}
}

// OutcomeKind tells the client whether the handshake created the account.
type OutcomeKind string

const (
	OutcomeNewUser      OutcomeKind = "new_user"
	OutcomeExistingUser OutcomeKind = "existing_user"
)

// Outcome is the result of a successful handshake.
type Outcome struct {
	Kind   OutcomeKind
	UserID string
	Email  string
	Token  string // session token for the cookie
}

// Callback carries what the provider's redirect delivered, plus the state
// the browser session remembered from Begin.
type Callback struct {
	StoredState string // "" when the session had none
	State       string
	Code        string
	Error       string // the provider's "error" parameter, e.g. access_denied
}

// IdentityService runs the Google sign-in handshake:
//
//	Initiated ──callback──► CodeReceived ──exchange+verify──► Verified
//	    │                        │                               │
//	    └────────────────────────┴──────────► Failed(reason) ◄───┘ (no email)
//
// Nothing is written to the user store until the identity is verified and
// has an email. Every earlier failure leaves storage untouched.
type IdentityService struct {
	provider IdentityProvider
	users    repository.UserRepository
	tokens   *auth.TokenService
	logger   *slog.Logger
}

func NewIdentityService(
	provider IdentityProvider,
	users repository.UserRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		provider: provider,
		users:    users,
		tokens:   tokens,
		logger:   logger,
	}
}

// Begin generates a fresh state and returns it with the provider URL to
// redirect to. The caller must persist the state in the browser session.
func (s *IdentityService) Begin(ctx context.Context) (authURL, state string, err error) {
	if !s.provider.Configured() {
		return "", "", handshakeFailed(ReasonNotConfigured, nil)
	}
	state = xid.New().String()
	return s.provider.AuthURL(state), state, nil
}

// Complete finishes the handshake. The checks run in a fixed order and the
// state check comes before anything else the callback carries, so a forged
// callback never reaches the token endpoint.
func (s *IdentityService) Complete(ctx context.Context, cb Callback) (*Outcome, error) {
	if !s.provider.Configured() {
		return nil, handshakeFailed(ReasonNotConfigured, nil)
	}

	if cb.StoredState == "" ||
		subtle.ConstantTimeCompare([]byte(cb.StoredState), []byte(cb.State)) != 1 {
		s.logger.Warn("google callback: state mismatch",
			slog.Bool("storedStatePresent", cb.StoredState != ""),
		)
		return nil, handshakeFailed(ReasonStateMismatch, nil)
	}

	if cb.Error != "" {
		s.logger.Info("google callback: user denied authorization", slog.String("error", cb.Error))
		return nil, handshakeFailed(ReasonProviderDenied, fmt.Errorf("provider returned %q", cb.Error))
	}
	if cb.Code == "" {
		return nil, handshakeFailed(ReasonHandshakeError, errors.New("callback has no code"))
	}

	identity, err := s.provider.Authenticate(ctx, cb.Code)
	if err != nil {
		s.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		return nil, handshakeFailed(ReasonHandshakeError, err)
	}
	if identity.Email == "" {
		return nil, handshakeFailed(ReasonNoEmailClaim, nil)
	}
	if !identity.EmailVerified {
		s.logger.Warn("google callback: email not verified by provider")
		return nil, handshakeFailed(ReasonEmailUnverified, nil)
	}

	user, kind, err := s.findOrCreate(ctx, identity)
	if err != nil {
		s.logger.Error("google callback: storing user failed", slog.String("error", err.Error()))
		return nil, handshakeFailed(ReasonHandshakeError, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, handshakeFailed(ReasonHandshakeError, err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
		slog.String("outcome", string(kind)),
	)
	return &Outcome{Kind: kind, UserID: user.ID, Email: user.Email, Token: token}, nil
}

// findOrCreate is the only mutating step. Accounts are matched by email:
// an existing password account is linked by backfilling external_id. A
// Google account whose email changed since it was linked is still found
// by its subject.
func (s *IdentityService) findOrCreate(ctx context.Context, id *auth.Identity) (*model.User, OutcomeKind, error) {
	user, err := s.lookup(ctx, id)
	switch {
	case err == nil:
		return s.link(ctx, user, id)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, "", err
	}

	user = &model.User{
		Email:       id.Email,
		ExternalID:  id.Subject,
		Preferences: model.DefaultPreferences(),
		SavedPlaces: []any{},
	}
	err = s.users.CreateUser(ctx, user)
	if err == nil {
		return user, OutcomeNewUser, nil
	}
	if !errors.Is(err, apperror.ErrDuplicateKey) {
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	// A concurrent callback for the same identity won the insert.
	existing, err := s.lookup(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("re-reading user after duplicate insert: %w", err)
	}
	return s.link(ctx, existing, id)
}

// lookup finds the account for id by email, then by Google subject.
// It returns apperror.ErrNotFound when neither matches.
func (s *IdentityService) lookup(ctx context.Context, id *auth.Identity) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, id.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up %s: %w", id.Email, err)
	}

	user, err = s.users.GetUserByExternalID(ctx, id.Subject)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up subject: %w", err)
	}
	return user, err
}

func (s *IdentityService) link(ctx context.Context, user *model.User, id *auth.Identity) (*model.User, OutcomeKind, error) {
	switch {
	case user.ExternalID == "":
		user.ExternalID = id.Subject
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, "", fmt.Errorf("linking user %s: %w", user.ID, err)
		}
		s.logger.Info("linked Google identity to existing account", slog.String("userID", user.ID))
	case user.ExternalID != id.Subject:
		// Same email, different Google account. Keep the first link.
		s.logger.Warn("google subject differs from linked identity", slog.String("userID", user.ID))
	}
	return user, OutcomeExistingUser, nil
}
