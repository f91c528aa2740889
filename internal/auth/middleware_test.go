package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// echoUser writes the user ID found in the context, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	w.Write([]byte(id))
})

func requestWithSession(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-42")
	expired, _ := ts.GenerateWithDuration("user-42", -time.Minute)
	state, _ := ts.Sign("state", AudienceOAuthState, time.Minute)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid session", valid, http.StatusOK, "user-42"},
		{"no cookie", "", http.StatusUnauthorized, ""},
		{"expired", expired, http.StatusUnauthorized, ""},
		{"state token", state, http.StatusUnauthorized, ""},
		{"garbage", "not-a-token", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireAuth(ts)(echoUser).ServeHTTP(rec, requestWithSession(tt.token))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-7")

	rec := httptest.NewRecorder()
	OptionalAuth(ts)(echoUser).ServeHTTP(rec, requestWithSession(valid))
	if rec.Body.String() != "user-7" {
		t.Errorf("with session: body = %q, want user-7", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	OptionalAuth(ts)(echoUser).ServeHTTP(rec, requestWithSession("broken"))
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("bad session: status %d body %q, want 200 anonymous", rec.Code, rec.Body.String())
	}
}

func TestSessionCookieHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", true)
	ClearSessionCookie(rec, true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}

	set, cleared := cookies[0], cookies[1]
	if set.Name != SessionCookie || set.Value != "tok" || !set.HttpOnly || !set.Secure {
		t.Errorf("set cookie = %+v", set)
	}
	if set.MaxAge != int(SessionTTL.Seconds()) {
		t.Errorf("MaxAge = %d, want %d", set.MaxAge, int(SessionTTL.Seconds()))
	}
	if cleared.MaxAge >= 0 {
		t.Errorf("cleared MaxAge = %d, want negative", cleared.MaxAge)
	}
}
