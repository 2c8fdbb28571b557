// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/gatehub/internal/app/system/access"
	"go.uber.org/zap"
)

// envelope is the JSON error body every endpoint returns on failure.
type envelope struct {
	Error string `json:"error"`
}

// JSON writes v with the given status. Encoding failures are swallowed; by
// the time Encode fails the status line is already gone.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, envelope{Error: msg})
}

// BadRequest is the 400 shorthand used by request decoders.
func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, msg)
}

// FromService maps service-layer sentinel errors to HTTP statuses.
// Anything unmapped is an internal error: logged with detail, surfaced
// without it.
func FromService(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, access.ErrForbidden):
		Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, access.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, access.ErrConflict):
		Error(w, http.StatusConflict, "conflict")
	default:
		logger.Error("request failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
