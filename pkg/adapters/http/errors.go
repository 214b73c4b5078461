package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/hexcast/pkg/domain"
)

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var collab *domain.CollaboratorError
	switch {
	case errors.As(err, &collab):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMalformedPattern):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCastComplete),
		errors.Is(err, domain.ErrIncompleteCast),
		errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}
	var inv *domain.InvalidInputError
	if errors.As(err, &inv) {
		body.Field = inv.Field
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "err", err)
	} else {
		logger.Debug("Request rejected", "status", status, "err", err)
	}
	writeJSON(w, logger, status, body)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
