package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/internal/storage"
	"github.com/brikvest/apiserver/internal/store"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

// Principal is the authenticated caller, resolved by RequireAuth from
// the access token and session check.
type Principal struct {
	UserID      int
	SessionID   string
	Roles       []string
	Permissions []string
}

// Has reports whether the principal carries the permission key.
func (p Principal) Has(permission string) bool {
	for _, key := range p.Permissions {
		if key == permission {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal carries the role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func principalFromContext(ctx context.Context) (Principal, error) {
	principal, ok := ctx.Value(contextPrincipalKey).(Principal)
	if !ok || principal.UserID < 1 {
		return Principal{}, errors.New("missing principal")
	}
	return principal, nil
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service and store sentinels onto HTTP statuses.
// Anything unrecognized becomes a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailNotVerified),
		errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidOTP),
		errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, services.ErrUnitsUnavailable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value < 1 {
		return 0, errors.New("invalid " + name)
	}
	return value, nil
}

// pagination reads offset/limit query params with sane bounds.
func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
