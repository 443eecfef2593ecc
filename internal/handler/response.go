package handler

// RESPONSE HELPERS:
// Every handler sends JSON through writeJSON and maps domain errors through
// writeError, so all error responses share one shape:
//
//	{"error": "forbidden", "message": "insufficient permissions"}
//
// The mapping from apperror sentinels to status codes lives here and only
// here — the service layer never sees an HTTP status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/service"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind (e.g. "not_found")
	Message string `json:"message"` // human-readable description
	Field   string `json:"field,omitempty"`
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write; once Encode writes, they are sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a service-layer error into an HTTP response.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/project: %w", apperror.Forbidden(...))
//
// still maps to 403. Errors with no apperror in the chain are internal: the
// client gets a generic 500 and the real cause stays in the server log —
// raw error strings can carry SQL fragments and file paths.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			kind = "validation_error"
		case errors.Is(err, apperror.ErrUnauthenticated), errors.Is(err, apperror.ErrInvalidToken):
			status = http.StatusUnauthorized
			kind = "unauthenticated"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			kind = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			kind = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			kind = "conflict"
		case errors.Is(err, apperror.ErrInvalidState):
			status = http.StatusConflict
			kind = "invalid_state"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// decodeJSON parses the request body into dst, rejecting unknown fields so
// a typoed field name fails loudly instead of being silently dropped.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON request body")
	}
	return nil
}

// pathUUID parses a UUID URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperror.ValidationFailed(name, "must be a valid UUID")
	}
	return id, nil
}

// parseUUIDField parses a UUID carried in a JSON body field.
func parseUUIDField(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperror.ValidationFailed(field, "must be a valid UUID")
	}
	return id, nil
}

// pathResourceType reads the {resourceType} URL parameter. Validation of
// the value happens in the service layer.
func pathResourceType(r *http.Request) string {
	return chi.URLParam(r, "resourceType")
}

// currentUser resolves the authenticated caller to a live user record.
// The auth middleware guarantees a user ID is present; the lookup still
// runs on every request so a deleted account stops working immediately.
func currentUser(r *http.Request, authSvc *service.AuthService) (*model.User, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthenticated()
	}
	return authSvc.GetUser(r.Context(), userID)
}
