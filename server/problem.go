package server

import (
	"encoding/json"
	"net/http"
)

// problem is an RFC 7807 response body. Validation failures (4xx) tell the
// client to fix the request; 5xx and 429 tell it to try again later.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{Title: title, Status: status, Detail: detail})
}

func writeValidationError(w http.ResponseWriter, detail string) {
	writeProblem(w, http.StatusBadRequest, "Validation Error", detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
