package middleware

import (
	"net/http"
	"strings"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Content-Type", "Authorization", "X-Admin-Token", "X-Request-Id",
	}, ", ")
)

// CORS lets the front end call the API from another origin.
//
// allowed holds exact origins or "*". An exactly listed origin is echoed
// back with Access-Control-Allow-Credentials, so the browser sends the
// session cookie. "*" answers with a literal wildcard and no credentials:
// any site may read public responses, but never with a user's session.
// Preflight requests are answered here with 204.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := w.Header()
			header.Add("Vary", "Origin")

			switch {
			case originListed(origin, allowed):
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
			case wildcard(allowed):
				header.Set("Access-Control-Allow-Origin", "*")
			default:
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			header.Set("Access-Control-Allow-Methods", corsMethods)
			header.Set("Access-Control-Allow-Headers", corsHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originListed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate != "*" && strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

func wildcard(allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" {
			return true
		}
	}
	return false
}
