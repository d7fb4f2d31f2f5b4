package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
)

// PartnerHandler exposes a partner's referral history.
type PartnerHandler struct {
	partners *services.PartnerService
}

func NewPartnerHandler(partners *services.PartnerService) *PartnerHandler {
	return &PartnerHandler{partners: partners}
}

// PartnerRouter registers referral routes, all gated behind the
// referral.read_own permission carried by the PARTNER role.
func PartnerRouter(r chi.Router, partners *services.PartnerService, guard *Guard) {
	handler := NewPartnerHandler(partners)

	r.Use(guard.RequireAuth)
	r.Use(RequirePermission("referral.read_own"))
	r.Get("/referrals", handler.Referrals)
	r.Get("/referrals/summary", handler.Summary)
}

func (h *PartnerHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	referrals, err := h.partners.Referrals(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, referrals)
}

func (h *PartnerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.partners.Summary(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
