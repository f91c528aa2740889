package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/accessible-chennai/internal/auth"
)

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return s, rdb
}

// browserRoundTrip saves state through store, then builds the callback
// request a browser would send back with the cookies it was given.
func browserRoundTrip(t *testing.T, store StateStore, state string) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	login := httptest.NewRequest(http.MethodGet, "/api/google-auth/login", nil)
	if err := store.Save(context.Background(), rec, login, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	callback := httptest.NewRequest(http.MethodGet, "/api/google-auth/callback", nil)
	for _, c := range rec.Result().Cookies() {
		callback.AddCookie(c)
	}
	return callback
}

func take(t *testing.T, store StateStore, r *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	got, err := store.Take(context.Background(), rec, r)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	return got, rec
}

// stores runs the shared behaviour against both implementations.
func stores(t *testing.T) map[string]StateStore {
	_, rdb := newTestRedis(t)
	return map[string]StateStore{
		"cookie": NewCookieStateStore(newTestTokens(t), false),
		"redis":  NewRedisStateStore(rdb, false),
	}
}

// =========================================================================
// SHARED BEHAVIOUR
// =========================================================================

func TestStateStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			req := browserRoundTrip(t, store, "cv37rs3pp9olc6atsptg")

			got, rec := take(t, store, req)
			if got != "cv37rs3pp9olc6atsptg" {
				t.Errorf("Take() = %q, want the saved state", got)
			}

			// The cookie is expired on the way out.
			cookies := rec.Result().Cookies()
			if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
				t.Errorf("Take() cookies = %+v, want one expiring cookie", cookies)
			}
		})
	}
}

func TestStateStore_NoCookie(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, _ := take(t, store, httptest.NewRequest(http.MethodGet, "/cb", nil))
			if got != "" {
				t.Errorf("Take() = %q, want empty", got)
			}
		})
	}
}

func TestStateStore_TamperedCookie(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cb", nil)
			req.AddCookie(&http.Cookie{Name: StateCookie, Value: "forged"})
			req.AddCookie(&http.Cookie{Name: SessionIDCookie, Value: "forged"})

			got, _ := take(t, store, req)
			if got != "" {
				t.Errorf("Take() = %q, want empty for a forged cookie", got)
			}
		})
	}
}

// =========================================================================
// SINGLE USE
// =========================================================================

// With Redis the entry is deleted server-side, so replaying the same
// cookie finds nothing.
func TestRedisStateStore_SingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStateStore(rdb, false)
	req := browserRoundTrip(t, store, "state-1")

	first, _ := take(t, store, req)
	second, _ := take(t, store, req)

	if first != "state-1" {
		t.Errorf("first Take() = %q, want state-1", first)
	}
	if second != "" {
		t.Errorf("second Take() = %q, want empty", second)
	}
}

func TestRedisStateStore_Expires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStateStore(rdb, false)
	req := browserRoundTrip(t, store, "state-1")

	mr.FastForward(StateTTL + time.Second)

	if got, _ := take(t, store, req); got != "" {
		t.Errorf("Take() after TTL = %q, want empty", got)
	}
}

func TestRedisStateStore_ServerDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStateStore(rdb, false)
	req := browserRoundTrip(t, store, "state-1")

	mr.Close()

	_, err := store.Take(context.Background(), httptest.NewRecorder(), req)
	if err == nil {
		t.Fatal("Take() should report a Redis failure")
	}
}

// A session token presented as a state cookie must be rejected: the
// audiences differ.
func TestCookieStateStore_RejectsSessionToken(t *testing.T) {
	tokens := newTestTokens(t)
	store := NewCookieStateStore(tokens, false)

	session, _ := tokens.Generate("user-1")
	req := httptest.NewRequest(http.MethodGet, "/cb", nil)
	req.AddCookie(&http.Cookie{Name: StateCookie, Value: session})

	if got, _ := take(t, store, req); got != "" {
		t.Errorf("Take() = %q, want empty", got)
	}
}
