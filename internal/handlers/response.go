package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AnshRaj112/diary-backend/internal/models"
)

// MethodError is returned by CheckMethod when the request uses the wrong HTTP method.
type MethodError struct {
	Expected string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("Method Not Allowed. Expected: %s", e.Expected)
}

// CheckMethod compares method tokens exactly (case-sensitive).
func CheckMethod(actual, expected string) error {
	if actual != expected {
		return &MethodError{Expected: expected}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
