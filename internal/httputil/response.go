package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/vitals.report/internal/monitoring"
)

// StatusResponse is the {"status", "message"} envelope the trigger endpoint
// answers with.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageResponse is the bare {"message"} body of lookup misses.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteStatus writes a StatusResponse.
func WriteStatus(w http.ResponseWriter, code int, status, msg string) {
	WriteJSON(w, code, StatusResponse{Status: status, Message: msg})
}

// BadRequest writes a 400 with status "error".
func BadRequest(w http.ResponseWriter, msg string) {
	WriteStatus(w, http.StatusBadRequest, "error", msg)
}

// InternalServerError writes a 500 with status "error".
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteStatus(w, http.StatusInternalServerError, "error", msg)
}

// MethodNotAllowed writes a 405 with status "error".
func MethodNotAllowed(w http.ResponseWriter) {
	WriteStatus(w, http.StatusMethodNotAllowed, "error", "method not allowed")
}

// NotFound writes a 404 MessageResponse.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, MessageResponse{Message: msg})
}
