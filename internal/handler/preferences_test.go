package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accessible-chennai/internal/handler"
)

func TestPreferences_GetUnknownUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/user/nope/preferences", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)
}

func TestPreferences_UpdateAcceptsBothShapes(t *testing.T) {
	app := newTestApp(t)
	userID, _ := app.register(t, "a@example.com", "pw")
	target := "/api/user/" + userID + "/preferences"

	rec := app.do(t, http.MethodPost, target, map[string]any{"theme": "dark"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"mode": null, "theme": "dark"}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, target, map[string]any{"preferences": map[string]any{"font_size": 18}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"mode": null, "theme": "dark", "font_size": 18}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, target, nil)
	assert.JSONEq(t, `{"mode": null, "theme": "dark", "font_size": 18}`, rec.Body.String())
}

// A "preferences" key next to other keys is an ordinary preference.
func TestPreferences_WrapperOnlyWhenAlone(t *testing.T) {
	app := newTestApp(t)
	userID, _ := app.register(t, "a@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/api/user/"+userID+"/preferences", map[string]any{
		"preferences": map[string]any{"x": 1},
		"theme":       "light",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mode": null, "theme": "light", "preferences": {"x": 1}}`, rec.Body.String())
}

func TestPreferences_UpdateRejectsBadMode(t *testing.T) {
	app := newTestApp(t)
	userID, _ := app.register(t, "a@example.com", "pw")
	target := "/api/user/" + userID + "/preferences"

	rec := app.do(t, http.MethodPost, target, map[string]any{"mode": "loud", "theme": "dark"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "invalid_mode", resp.Error)
	assert.Equal(t, "mode", resp.Field)

	after := app.do(t, http.MethodGet, target, nil)
	assert.JSONEq(t, `{"mode": null}`, after.Body.String(), "nothing may be written")
}

func TestPreferences_UpdateUnknownUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/user/nope/preferences", map[string]any{"theme": "dark"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetMode(t *testing.T) {
	app := newTestApp(t)
	userID, _ := app.register(t, "a@example.com", "pw")
	app.do(t, http.MethodPost, "/api/user/"+userID+"/preferences", map[string]any{"theme": "dark"})

	rec := app.do(t, http.MethodPost, "/api/user/"+userID+"/mode", map[string]any{"mode": "voice"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.ModeResponse
	decode(t, rec, &resp)
	assert.Equal(t, "voice", resp.Mode)
	assert.Equal(t, "voice", resp.Preferences["mode"])
	assert.Equal(t, "dark", resp.Preferences["theme"], "other keys survive")
}

func TestSetMode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"unknown mode", map[string]any{"mode": "loud"}},
		{"null mode", map[string]any{"mode": nil}},
		{"missing mode", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			userID, _ := app.register(t, "a@example.com", "pw")
			app.do(t, http.MethodPost, "/api/user/"+userID+"/mode", map[string]any{"mode": "normal"})

			rec := app.do(t, http.MethodPost, "/api/user/"+userID+"/mode", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_mode", decodeError(t, rec).Error)

			after := app.do(t, http.MethodGet, "/api/user/"+userID+"/preferences", nil)
			assert.JSONEq(t, `{"mode": "normal"}`, after.Body.String())
		})
	}
}

func TestSetMode_UnknownUser(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/user/nope/mode", map[string]any{"mode": "voice"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
