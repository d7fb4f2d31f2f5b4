package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
)

// UserHandler exposes profile endpoints for the authenticated user.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers the self-service profile routes. All routes
// require authentication.
func UserRouter(r chi.Router, users *services.UserService, guard *Guard) {
	handler := NewUserHandler(users)

	r.Use(guard.RequireAuth)
	r.With(RequirePermission("user.read_own")).Get("/me", handler.Me)
	r.With(RequirePermission("user.update_own")).Patch("/me", handler.UpdateMe)
	r.With(RequirePermission("user.delete_own")).Delete("/me", handler.DeleteMe)
}

// Me returns the caller's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.Get(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies partial profile updates.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Password != nil && len(*req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), principal.UserID, services.UpdateProfileInput{
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteMe soft-deletes the caller's account and ends all sessions.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.users.Delete(r.Context(), principal.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "account deleted"})
}

// UpdateProfileRequest carries partial profile updates; absent fields
// are left unchanged.
type UpdateProfileRequest struct {
	Phone     *string `json:"phone"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
}
