package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/brikvest/apiserver/internal/services"
)

// RoleHandler grants and revokes roles by user ID. The same operations
// are reachable under /admin; these routes exist for auth-centric
// clients.
type RoleHandler struct {
	users *services.UserService
}

func NewRoleHandler(users *services.UserService) *RoleHandler {
	return &RoleHandler{users: users}
}

func (h *RoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID < 1 || req.Role == "" {
		writeError(w, http.StatusBadRequest, "missing user_id or role")
		return
	}
	if err := h.users.AssignRole(r.Context(), req.UserID, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "role assigned"})
}

func (h *RoleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID < 1 || req.Role == "" {
		writeError(w, http.StatusBadRequest, "missing user_id or role")
		return
	}
	if err := h.users.RemoveRole(r.Context(), req.UserID, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "role removed"})
}

// AssignRoleRequest names a user and a role.
type AssignRoleRequest struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}
