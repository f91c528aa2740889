package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/service"
)

// PreferenceHandler exposes a user's preference map.
//
// Routes are addressed by the user id the front end got from register,
// login or the Google redirect.
type PreferenceHandler struct {
	prefs  *service.PreferenceService
	logger *slog.Logger
}

func NewPreferenceHandler(prefs *service.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, logger: logger}
}

// ModeResponse is returned by HandleSetMode.
type ModeResponse struct {
	Mode        string            `json:"mode"`
	Preferences model.Preferences `json:"preferences"`
}

// HandleGet returns the stored preferences.
//
// HTTP: GET /api/user/{id}/preferences
func (h *PreferenceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleUpdate merges the body into the stored preferences and returns the
// merged map.
//
// HTTP: POST /api/user/{id}/preferences
// REQUEST BODY: {"theme": "dark"}  or  {"preferences": {"theme": "dark"}}
//
// Both shapes are in use by the front end. A body whose only key is
// "preferences" holding an object is unwrapped.
func (h *PreferenceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var body model.Preferences
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	merged, err := h.prefs.Update(r.Context(), id, unwrapPreferences(body))
	if err != nil {
		h.logger.Debug("preferences update rejected",
			slog.String("userID", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func unwrapPreferences(body model.Preferences) model.Preferences {
	if len(body) != 1 {
		return body
	}
	if inner, ok := body["preferences"].(map[string]any); ok {
		return inner
	}
	return body
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// HandleSetMode sets the interaction mode.
//
// HTTP: POST /api/user/{id}/mode
// REQUEST BODY: {"mode": "voice"}
//
// Any value other than "normal" or "voice" is a 400 invalid_mode and the
// stored preferences are left as they were.
func (h *PreferenceHandler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.prefs.SetMode(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	mode, _ := prefs.Mode()
	writeJSON(w, http.StatusOK, ModeResponse{Mode: string(mode), Preferences: prefs})
}
