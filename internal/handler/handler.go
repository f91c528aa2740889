// Package handler contains the HTTP request handlers.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements http.Handler:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly an http.HandlerFunc, a function with the right
// signature. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, body, headers)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules. They are the glue between HTTP and the
// services in internal/service.
package handler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/sakif/accessible-chennai/internal/service"
)

// AdminTokenHeader carries the admin token for maintenance endpoints.
const AdminTokenHeader = "X-Admin-Token"

// Pinger reports whether storage answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth - GET / and GET /api/health
//
// Answers with a fixed message so load balancers and the front end can
// check the API is up, or 503 when the database does not answer a ping.
// "/" is replaced by the SPA when a static dir is served.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check: database ping failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "The database is not reachable.",
		})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Accessible Chennai API running"})
}

// HandleAPINotFound answers unknown /api paths with a JSON 404, so they
// never fall through to the SPA.
func HandleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "No API endpoint at " + r.URL.Path + ".",
	})
}

// AdminHandler serves maintenance endpoints.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// HandleClearDB drops all data and recreates the empty schema.
//
// HTTP: POST /admin/clear_db
// Header: X-Admin-Token (required when ADMIN_TOKEN is configured)
func (h *AdminHandler) HandleClearDB(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.ClearDatabase(r.Context(), r.Header.Get(AdminTokenHeader)); err != nil {
		h.logger.Error("clear_db failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Database cleared and re-initialized."})
}

// SPA serves the bundled front end from dir.
//
// Existing files are served as-is. Any other path without a file extension
// gets index.html, so client-side routes like /login or /mode-selection
// survive a page reload. A missing asset (/static/app.js) is a real 404.
func SPA(dir string) http.Handler {
	root := os.DirFS(dir)
	files := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		if _, err := fs.Stat(root, name); err == nil {
			files.ServeHTTP(w, r)
			return
		} else if !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, root, "index.html")
	})
}
