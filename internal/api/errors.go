package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/pkg/response"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as a {"detail"} response. Errors without a user-facing
// detail are logged and reported with fallback.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var se *service.Error
	if errors.As(err, &se) {
		if se.Kind == service.ErrUnauthenticated {
			response.Unauthorized(w, se.Detail)
			return
		}
		response.Error(w, statusFor(err), se.Detail)
		return
	}
	if logger != nil {
		logger.Error(fallback, "error", err)
	}
	response.InternalError(w, fallback)
}

// decodeJSON reads a JSON body into v, writing a 400 and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			response.BadRequest(w, "Request body is required")
		default:
			response.BadRequest(w, "Invalid request body")
		}
		return false
	}
	return true
}
