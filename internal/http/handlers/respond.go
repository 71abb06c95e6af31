package handlers

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON error envelope shared by all handlers.
type errorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Ref        string   `json:"ref,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
