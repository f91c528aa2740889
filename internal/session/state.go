// Package session keeps the OAuth handshake state between the redirect to
// Google and the callback.
//
// The state has to survive one round trip through the user's browser and
// be usable exactly once. Two stores are provided:
//
//   - CookieStateStore keeps it in the browser, in a signed cookie. No
//     server-side storage, works for any number of replicas.
//   - RedisStateStore keeps it in Redis under a random session id; the
//     browser only holds the id. Selected when REDIS_URL is configured.
package session

import (
	"context"
	"net/http"
	"time"
)

// StateTTL is how long a user has to finish the Google consent screen.
const StateTTL = 10 * time.Minute

// StateStore saves a handshake state for the current browser and hands it
// back once.
type StateStore interface {
	// Save remembers state for the browser making r.
	Save(ctx context.Context, w http.ResponseWriter, r *http.Request, state string) error

	// Take returns the remembered state and forgets it. A missing, expired
	// or tampered entry yields "" and a nil error: to the handshake that is
	// simply a state that does not match.
	Take(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error)
}

// expireCookie tells the browser to delete the named cookie.
func expireCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setCookie writes a short-lived HttpOnly cookie. SameSite=Lax is required:
// the callback is a top-level navigation coming from accounts.google.com.
func setCookie(w http.ResponseWriter, name, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
