package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/metrics"
	"github.com/sakif/accessible-chennai/internal/service"
	"github.com/sakif/accessible-chennai/internal/session"
)

// Error codes put on the client login URL. The front end shows a message
// for each; they are part of its contract.
const (
	codeAuthFailed      = "google_auth_failed"
	codeNotConfigured   = "google_not_configured"
	codeStateMismatch   = "google_state_mismatch"
	codeAccessDenied    = "google_access_denied"
	codeNoEmail         = "no_email_from_google"
	codeEmailUnverified = "google_email_unverified"
	codeCallbackFailed  = "google_callback_failed"
)

// GoogleHandler runs the browser side of the Google sign-in.
//
// FLOW:
//  1. GET /api/google-auth/login: IdentityService.Begin makes a state,
//     the StateStore pins it to this browser, 302 to Google.
//  2. Google sends the browser back to /api/google-auth/callback.
//  3. The StateStore hands the state back (once), IdentityService.Complete
//     checks it and finishes the exchange, the session cookie is set.
//  4. 302 to {client}/login with either google_success=1 or error=<code>.
//
// Every outcome, including failures, is a redirect: the user is in the
// middle of a browser navigation and should land back in the app.
type GoogleHandler struct {
	identity      *service.IdentityService
	states        session.StateStore
	clientBaseURL string
	secureCookies bool
	logger        *slog.Logger
}

func NewGoogleHandler(
	identity *service.IdentityService,
	states session.StateStore,
	clientBaseURL string,
	secureCookies bool,
	logger *slog.Logger,
) *GoogleHandler {
	return &GoogleHandler{
		identity:      identity,
		states:        states,
		clientBaseURL: strings.TrimRight(clientBaseURL, "/"),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleLogin starts the handshake.
//
// HTTP: GET /api/google-auth/login
func (h *GoogleHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.identity.Begin(r.Context())
	if err != nil {
		h.fail(w, r, err, codeAuthFailed)
		return
	}

	if err := h.states.Save(r.Context(), w, r, state); err != nil {
		h.logger.Error("google login: saving state failed", slog.String("error", err.Error()))
		h.fail(w, r, err, codeAuthFailed)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the handshake.
//
// HTTP: GET /api/google-auth/callback?code=xxx&state=yyy
// or    GET /api/google-auth/callback?error=access_denied&state=yyy
func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	// The state is consumed before anything else: a second callback with
	// the same state must fail even if the first one did.
	stored, err := h.states.Take(r.Context(), w, r)
	if err != nil {
		h.logger.Error("google callback: reading state failed", slog.String("error", err.Error()))
		h.fail(w, r, err, codeCallbackFailed)
		return
	}

	q := r.URL.Query()
	outcome, err := h.identity.Complete(r.Context(), service.Callback{
		StoredState: stored,
		State:       q.Get("state"),
		Code:        q.Get("code"),
		Error:       q.Get("error"),
	})
	if err != nil {
		h.fail(w, r, err, codeCallbackFailed)
		return
	}

	metrics.HandshakeOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	auth.SetSessionCookie(w, outcome.Token, h.secureCookies)

	h.redirectToClient(w, r, url.Values{
		"google_success": {"1"},
		"user_id":        {outcome.UserID},
		"email":          {outcome.Email},
		"outcome":        {string(outcome.Kind)},
	})
}

// fail redirects to the client login page with an error code. A
// *service.HandshakeError picks its own code; anything else gets fallback.
func (h *GoogleHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := fallback
	label := "internal_error"

	var hsErr *service.HandshakeError
	if errors.As(err, &hsErr) {
		code = reasonCode(hsErr.Reason, fallback)
		label = string(hsErr.Reason)
	}
	metrics.HandshakeOutcomes.WithLabelValues(label).Inc()

	h.redirectToClient(w, r, url.Values{"error": {code}})
}

func reasonCode(reason service.HandshakeReason, fallback string) string {
	switch reason {
	case service.ReasonNotConfigured:
		return codeNotConfigured
	case service.ReasonStateMismatch:
		return codeStateMismatch
	case service.ReasonProviderDenied:
		return codeAccessDenied
	case service.ReasonNoEmailClaim:
		return codeNoEmail
	case service.ReasonEmailUnverified:
		return codeEmailUnverified
	default:
		return fallback
	}
}

func (h *GoogleHandler) redirectToClient(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.clientBaseURL+"/login?"+params.Encode(), http.StatusFound)
}
