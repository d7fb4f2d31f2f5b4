package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
)

// BankHandler manages the caller's payout accounts.
type BankHandler struct {
	banks *services.BankService
}

func NewBankHandler(banks *services.BankService) *BankHandler {
	return &BankHandler{banks: banks}
}

// BankRouter registers payout account routes. All routes require the
// bank.manage_own permission.
func BankRouter(r chi.Router, banks *services.BankService, guard *Guard) {
	handler := NewBankHandler(banks)

	r.Use(guard.RequireAuth)
	r.Use(RequirePermission("bank.manage_own"))
	r.Get("/", handler.List)
	r.Post("/", handler.Add)
	r.Delete("/{accountID}", handler.Remove)
}

func (h *BankHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := h.banks.List(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Add resolves the account against the payment provider and stores it.
func (h *BankHandler) Add(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.BankCode = strings.TrimSpace(req.BankCode)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if req.BankCode == "" || req.BankName == "" || req.AccountNumber == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	account, err := h.banks.Add(r.Context(), principal.UserID, services.AddBankInput{
		BankCode:      req.BankCode,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *BankHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := urlParamInt(r, "accountID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.banks.Remove(r.Context(), id, principal.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "bank account removed"})
}

// AddBankRequest is the payout account payload.
type AddBankRequest struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}
