package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"smeaudit/internal/app"
	"smeaudit/internal/core"
)

// envelope is the shape of every JSON response body.
type envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeJSON writes data inside a success envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorEnvelope(w, status, envelope{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// writeServiceError maps a domain error to its HTTP status and code. Unrecognised errors
// are logged and reported as 500 without their text.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationErrors
	switch {
	case errors.As(err, &ve):
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, envelope{
			Error:     "validation failed",
			Code:      "VALIDATION_ERROR",
			Fields:    ve.Fields,
			RequestID: requestIDFromContext(r.Context()),
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrConflict):
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, r, "invalid username or password", "UNAUTHORIZED", http.StatusUnauthorized)
	case errors.Is(err, core.ErrUnsupportedStatement):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, app.ErrAssistantUnavailable):
		writeError(w, r, err.Error(), "UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
