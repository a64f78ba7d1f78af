// Package handlers holds the fixed HTTP endpoints (root, health, version)
// and the JSON response helpers shared by every route.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	// Detail carries structured context such as validation issues.
	Detail any `json:"detail,omitempty"`
}

// RequireMethod reports whether r uses one of methods. GET also admits
// HEAD. Otherwise it writes a JSON 405 with an Allow header.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m || (m == http.MethodGet && r.Method == http.MethodHead) {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError writes {"status":"error","error":message}.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, ErrorResponse{Status: "error", Error: message})
}

// WriteErrorDetail is WriteError with a detail payload.
func WriteErrorDetail(w http.ResponseWriter, status int, message string, detail any) error {
	return WriteJSON(w, status, ErrorResponse{Status: "error", Error: message, Detail: detail})
}
