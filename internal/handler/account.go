package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/accessible-chennai/internal/apperror"
	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/metrics"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/service"
)

// AccountHandler serves password accounts and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create a password account, start a session
//   - HandleLogin    → check email and password, start a session
//   - HandleLogout   → clear the session cookie
//   - HandleMe       → return the signed-in user
type AccountHandler struct {
	accounts      *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

func NewAccountHandler(accounts *service.AuthService, secureCookies bool, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts:      accounts,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type credentialsRequest struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	Preferences model.Preferences `json:"preferences,omitempty"`
}

// LoginResponse is returned by register and login. The front end keeps
// user_id to address the preference endpoints.
type LoginResponse struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	IsNewUser bool   `json:"is_new_user,omitempty"`
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/register
// REQUEST BODY: {"email": "...", "password": "...", "preferences": {...}}
//
// preferences is optional and seeds the new account (the front end sends
// whatever the visitor chose before signing up).
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.logFailure("register", err)
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.secureCookies)
	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "Registration successful",
		UserID:    result.User.ID,
		IsNewUser: result.IsNewUser,
	})
}

// HandleLogin checks a password.
//
// HTTP: POST /api/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.PasswordLogins.WithLabelValues(loginResult(err)).Inc()
		h.logFailure("login", err)
		writeError(w, err)
		return
	}
	metrics.PasswordLogins.WithLabelValues("success").Inc()

	auth.SetSessionCookie(w, result.Token, h.secureCookies)
	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		UserID:  result.User.ID,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/logout
//
// Sessions are stateless JWTs: "logout" deletes the cookie. The token
// stays valid until it expires, but the browser no longer sends it.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid session required"})
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logFailure("me", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// logFailure logs expected rejections at info and everything else at error.
func (h *AccountHandler) logFailure(op string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		h.logger.Info(op+" rejected", slog.String("reason", appErr.Message))
		return
	}
	h.logger.Error(op+" failed", slog.String("error", err.Error()))
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, apperror.ErrExternalLogin):
		return "external_login_required"
	default:
		return "error"
	}
}
