package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/api/middleware"
	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
)

var validate = validator.New()

// requestScope pulls the authenticated user and the workspace from the
// request context. Writes the error response itself on failure.
func requestScope(w http.ResponseWriter, r *http.Request) (userID, workspaceID uuid.UUID, ok bool) {
	userID, ok = middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	workspaceID, ok = middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.BadRequest(w, "missing workspace ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, workspaceID, true
}

// urlUUID parses a UUID URL parameter
func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// writeError maps domain errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrAccessDenied):
		response.Forbidden(w, "access denied")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrServiceWindowClosed):
		response.Conflict(w, "service window closed, use a template message")
	case errors.Is(err, domain.ErrTokenUnavailable):
		response.Conflict(w, "account credentials unavailable, reconnect the account")
	default:
		response.InternalError(w, err.Error())
	}
}

func validationErrors(err error) any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			out[e.Field()] = "field is required"
		case "email":
			out[e.Field()] = "invalid email format"
		case "min":
			out[e.Field()] = "must be at least " + e.Param()
		case "max":
			out[e.Field()] = "must be at most " + e.Param()
		default:
			out[e.Field()] = "validation failed on " + e.Tag()
		}
	}
	return out
}

// pagination reads limit/offset query params with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
