package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/handler"
	"github.com/sakif/accessible-chennai/internal/repository/sqldb"
	"github.com/sakif/accessible-chennai/internal/service"
	"github.com/sakif/accessible-chennai/internal/session"
)

const (
	testClientURL  = "http://localhost:3000"
	testAdminToken = "admin-s3cret"
)

// fakeProvider stands in for Google in handler tests.
type fakeProvider struct {
	configured bool
	identity   *auth.Identity
	err        error
	exchanges  int
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Authenticate(context.Context, string) (*auth.Identity, error) {
	p.exchanges++
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

// testApp is the whole stack (real services, in-memory SQLite) behind a
// chi router laid out like the production one.
type testApp struct {
	router   http.Handler
	db       *sqldb.DB
	tokens   *auth.TokenService
	provider *fakeProvider
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqldb.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)

	provider := &fakeProvider{configured: true}

	accounts := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger)
	identity := service.NewIdentityService(provider, db, tokens, logger)
	prefs := service.NewPreferenceService(db, logger)
	admin := service.NewAdminService(db, testAdminToken, logger)

	accountHandler := handler.NewAccountHandler(accounts, false, logger)
	googleHandler := handler.NewGoogleHandler(identity, session.NewCookieStateStore(tokens, false), testClientURL+"/", false, logger)
	prefHandler := handler.NewPreferenceHandler(prefs, logger)
	recordHandler := handler.NewRecordHandler(
		service.NewAlertService(db, logger),
		service.NewCommunityService(db, logger),
		service.NewRouteService(db, logger),
		logger,
	)
	adminHandler := handler.NewAdminHandler(admin, logger)

	health := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/", health.HandleHealth)
	r.Post("/admin/clear_db", adminHandler.HandleClearDB)
	r.Route("/api", func(r chi.Router) {
		r.NotFound(handler.HandleAPINotFound)
		r.Get("/health", health.HandleHealth)

		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)
		r.With(auth.RequireAuth(tokens)).Get("/me", accountHandler.HandleMe)

		r.Get("/google-auth/login", googleHandler.HandleLogin)
		r.Get("/google-auth/callback", googleHandler.HandleCallback)

		r.Get("/alerts", recordHandler.HandleListAlerts)
		r.Post("/alerts", recordHandler.HandleCreateAlert)
		r.Get("/community", recordHandler.HandleListCommunity)
		r.With(auth.OptionalAuth(tokens)).Post("/community", recordHandler.HandleCreateCommunity)
		r.Get("/routes", recordHandler.HandleListRoutes)
		r.With(auth.OptionalAuth(tokens)).Post("/routes", recordHandler.HandleCreateRoute)

		r.Get("/user/{id}/preferences", prefHandler.HandleGet)
		r.Post("/user/{id}/preferences", prefHandler.HandleUpdate)
		r.Post("/user/{id}/mode", prefHandler.HandleSetMode)
	})

	return &testApp{router: r, db: db, tokens: tokens, provider: provider}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string.
func (a *testApp) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates a password account and returns its id and session cookie.
func (a *testApp) register(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/register", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.LoginResponse
	decode(t, rec, &resp)
	return resp.UserID, cookieNamed(t, rec, auth.SessionCookie)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	decode(t, rec, &resp)
	return resp
}

func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("response set no %q cookie", name)
	return nil
}
