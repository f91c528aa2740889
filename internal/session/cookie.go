package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sakif/accessible-chennai/internal/auth"
)

// StateCookie holds the signed state for CookieStateStore.
const StateCookie = "oauth_state"

// CookieStateStore keeps the state in a cookie signed with the server
// secret. The signature stops a browser from planting a state of its choice;
// the audience claim stops the token from being replayed as a session.
type CookieStateStore struct {
	tokens *auth.TokenService
	secure bool
}

var _ StateStore = (*CookieStateStore)(nil)

func NewCookieStateStore(tokens *auth.TokenService, secure bool) *CookieStateStore {
	return &CookieStateStore{tokens: tokens, secure: secure}
}

func (s *CookieStateStore) Save(_ context.Context, w http.ResponseWriter, _ *http.Request, state string) error {
	signed, err := s.tokens.Sign(state, auth.AudienceOAuthState, StateTTL)
	if err != nil {
		return fmt.Errorf("session: signing state: %w", err)
	}
	setCookie(w, StateCookie, signed, s.secure)
	return nil
}

// Take always expires the cookie, so a state can be presented once.
func (s *CookieStateStore) Take(_ context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	cookie, err := r.Cookie(StateCookie)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	expireCookie(w, StateCookie, s.secure)

	state, err := s.tokens.Parse(cookie.Value, auth.AudienceOAuthState)
	if err != nil {
		return "", nil
	}
	return state, nil
}
