// Package httputil provides shared HTTP response helpers. Every PulseFeed
// endpoint answers with a body carrying a success flag and, for failures,
// a human-readable message. Internal error details never reach the client.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the standard response body shape.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Cached  *bool  `json:"cached,omitempty"`
}

// WriteJSON writes any value as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteSuccess writes a success envelope carrying data.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteCached writes a success envelope tagged with whether the payload
// was served from cache.
func WriteCached(w http.ResponseWriter, status int, data any, cached bool) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Cached: &cached})
}

// WriteError writes a failure envelope with a client-safe message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: false, Message: message})
}
