package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/accessible-chennai/internal/auth"
	"github.com/sakif/accessible-chennai/internal/metrics"
	"github.com/sakif/accessible-chennai/internal/model"
	"github.com/sakif/accessible-chennai/internal/service"
)

// RecordHandler serves the three community collections. Each has the same
// two routes: GET lists everything newest first, POST appends one record.
type RecordHandler struct {
	alerts    *service.AlertService
	community *service.CommunityService
	routes    *service.RouteService
	logger    *slog.Logger
}

func NewRecordHandler(
	alerts *service.AlertService,
	community *service.CommunityService,
	routes *service.RouteService,
	logger *slog.Logger,
) *RecordHandler {
	return &RecordHandler{
		alerts:    alerts,
		community: community,
		routes:    routes,
		logger:    logger,
	}
}

// CreatedResponse acknowledges a POST to a collection.
type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type alertRequest struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// HandleListAlerts - GET /api/alerts
func (h *RecordHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List(r.Context())
	if err != nil {
		h.logger.Error("listing alerts failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleCreateAlert - POST /api/alerts
func (h *RecordHandler) HandleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	alert, err := h.alerts.Create(r.Context(), req.Category, req.Message, req.Location)
	if err != nil {
		h.logCreateError("alert", err)
		writeError(w, err)
		return
	}
	metrics.RecordsCreated.WithLabelValues("alerts").Inc()
	writeJSON(w, http.StatusOK, CreatedResponse{Message: "Alert created", ID: alert.ID})
}

// HandleListCommunity - GET /api/community
func (h *RecordHandler) HandleListCommunity(w http.ResponseWriter, r *http.Request) {
	messages, err := h.community.List(r.Context())
	if err != nil {
		h.logger.Error("listing community messages failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleCreateCommunity - POST /api/community
//
// REQUEST BODY: {"user_id": "...", "message": "...", "image_url": "...", "type": "chat"}
// Only message is required. Without user_id the post is attributed to the
// signed-in user, if any.
func (h *RecordHandler) HandleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	var req model.CommunityMessage
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.UserID = authorOr(r, req.UserID)

	msg, err := h.community.Create(r.Context(), req)
	if err != nil {
		h.logCreateError("community message", err)
		writeError(w, err)
		return
	}
	metrics.RecordsCreated.WithLabelValues("community").Inc()
	writeJSON(w, http.StatusOK, CreatedResponse{Message: "Message posted", ID: msg.ID})
}

// HandleListRoutes - GET /api/routes
func (h *RecordHandler) HandleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routes.List(r.Context())
	if err != nil {
		h.logger.Error("listing routes failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

// HandleCreateRoute - POST /api/routes
func (h *RecordHandler) HandleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req model.Route
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.UserID = authorOr(r, req.UserID)

	route, err := h.routes.Create(r.Context(), req)
	if err != nil {
		h.logCreateError("route", err)
		writeError(w, err)
		return
	}
	metrics.RecordsCreated.WithLabelValues("routes").Inc()
	writeJSON(w, http.StatusOK, CreatedResponse{Message: "Route saved", ID: route.ID})
}

// authorOr returns given, or the session user (set by auth.OptionalAuth)
// when given is empty.
func authorOr(r *http.Request, given string) string {
	if given != "" {
		return given
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

func (h *RecordHandler) logCreateError(what string, err error) {
	h.logger.Warn("creating "+what+" failed", slog.String("error", err.Error()))
}
