package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
)

// SubscriptionHandler sells property units and confirms payments.
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	users         *services.UserService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, users *services.UserService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, users: users}
}

// SubscriptionRouter registers investment routes.
func SubscriptionRouter(r chi.Router, subscriptions *services.SubscriptionService, users *services.UserService, guard *Guard) {
	handler := NewSubscriptionHandler(subscriptions, users)

	r.Use(guard.RequireAuth)
	r.With(RequirePermission("subscription.create_own")).Post("/", handler.Checkout)
	r.With(RequirePermission("subscription.read_own")).Get("/", handler.ListMine)
	r.With(RequirePermission("subscription.create_own")).Post("/confirm", handler.Confirm)
	r.With(RequirePermission("subscription.create_own")).Post("/cancel", handler.Cancel)
}

// Checkout reserves units and initializes the provider transaction.
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.PropertyID < 1 || req.Units < 1 {
		writeError(w, http.StatusBadRequest, "property_id and units are required")
		return
	}

	user, err := h.users.Get(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.subscriptions.Checkout(r.Context(), user, req.PropertyID, req.Units)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Confirm verifies the payment for a reference and activates the
// subscription.
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference")
		return
	}

	sub, err := h.subscriptions.Confirm(r.Context(), principal.UserID, req.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Cancel abandons a pending checkout and releases its units.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference")
		return
	}

	sub, err := h.subscriptions.Cancel(r.Context(), principal.UserID, req.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListMine returns the caller's subscriptions.
func (h *SubscriptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	subs, err := h.subscriptions.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// CheckoutRequest starts an investment.
type CheckoutRequest struct {
	PropertyID int `json:"property_id"`
	Units      int `json:"units"`
}

// ReferenceRequest identifies a subscription by payment reference.
type ReferenceRequest struct {
	Reference string `json:"reference"`
}
