package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/types"
)

// AdminHandler groups the back-office endpoints: user management, role
// grants, and KYC review.
type AdminHandler struct {
	users *services.UserService
	kyc   *services.KYCService
}

func NewAdminHandler(users *services.UserService, kyc *services.KYCService) *AdminHandler {
	return &AdminHandler{users: users, kyc: kyc}
}

// AdminRouter registers the back-office routes. Each route carries its
// own permission gate on top of authentication.
func AdminRouter(r chi.Router, users *services.UserService, kyc *services.KYCService, guard *Guard) {
	handler := NewAdminHandler(users, kyc)

	r.Use(guard.RequireAuth)
	r.With(RequirePermission("user.read_all")).Get("/users", handler.ListUsers)
	r.With(RequirePermission("user.read_all")).Get("/users/{userID}", handler.GetUser)
	r.With(RequirePermission("user.delete_all")).Delete("/users/{userID}", handler.DeleteUser)
	r.With(RequirePermission("role.assign_all")).Post("/users/{userID}/roles", handler.AssignRole)
	r.With(RequirePermission("role.assign_all")).Delete("/users/{userID}/roles/{roleName}", handler.RemoveRole)
	r.With(RequirePermission("kyc.review_all")).Get("/kyc/pending", handler.PendingKYC)
	r.With(RequirePermission("kyc.review_all")).Post("/kyc/{documentID}/review", handler.ReviewKYC)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	users, total, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: users, Total: total})
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

// AssignRole grants a role to a user and invalidates their cached
// permissions.
func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "missing role")
		return
	}
	if err := h.users.AssignRole(r.Context(), id, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "role assigned"})
}

func (h *AdminHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roleName := chi.URLParam(r, "roleName")
	if roleName == "" {
		writeError(w, http.StatusBadRequest, "missing role")
		return
	}
	if err := h.users.RemoveRole(r.Context(), id, roleName); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "role removed"})
}

func (h *AdminHandler) PendingKYC(w http.ResponseWriter, r *http.Request) {
	docs, err := h.kyc.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// ReviewKYC approves or rejects a pending document.
func (h *AdminHandler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "documentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ReviewKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	doc, err := h.kyc.Review(r.Context(), id, req.Approve, req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UserListResponse pages through users.
type UserListResponse struct {
	Users []types.User `json:"users"`
	Total int          `json:"total"`
}

// RoleRequest names a role to grant.
type RoleRequest struct {
	Role string `json:"role"`
}

// ReviewKYCRequest carries a review decision.
type ReviewKYCRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}
