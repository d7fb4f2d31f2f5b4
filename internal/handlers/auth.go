package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/types"
)

// AuthHandler exposes registration, verification, login, refresh, and
// logout endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// AuthRouter registers auth routes on the given router. The guard is
// only applied to the session- and role-management endpoints.
func AuthRouter(r chi.Router, auth *services.AuthService, users *services.UserService, guard *Guard) {
	handler := NewAuthHandler(auth)
	roles := NewRoleHandler(users)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/verify-email", handler.VerifyEmail)
	r.Post("/resend-otp", handler.ResendOTP)
	r.Post("/refresh", handler.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Get("/sessions", handler.Sessions)
		r.Delete("/sessions", handler.LogoutAll)
		r.Delete("/sessions/{sessionID}", handler.LogoutSession)
		r.Post("/logout", handler.Logout)

		r.With(RequirePermission("role.assign_all")).Post("/roles/assign", roles.Assign)
		r.With(RequirePermission("role.assign_all")).Post("/roles/remove", roles.Remove)
	})
}

// Register creates an unverified account and emails a verification code.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Phone == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	switch types.AccountType(req.AccountType) {
	case "", types.AccountTypeIndividual, types.AccountTypeCompany, types.AccountTypePartner:
	default:
		writeError(w, http.StatusBadRequest, "invalid account type")
		return
	}

	user, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:        req.Email,
		Phone:        req.Phone,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Password:     req.Password,
		AccountType:  types.AccountType(req.AccountType),
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// VerifyEmail redeems the emailed code and logs the device in.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	result, err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code, r.UserAgent(), clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{User: result.User, Tokens: result.Tokens})
}

// ResendOTP issues a fresh verification code.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req ResendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing email")
		return
	}
	if err := h.auth.ResendOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "verification code sent"})
}

// Login authenticates and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	result, err := h.auth.Login(r.Context(), services.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: r.UserAgent(),
		IP:         clientIP(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{User: result.User, Tokens: result.Tokens})
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing refresh token")
		return
	}
	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// Sessions lists the caller's live device sessions.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Logout ends the caller's current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.LogoutSession(r.Context(), principal.UserID, principal.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// LogoutSession ends one named session belonging to the caller.
func (h *AuthHandler) LogoutSession(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	if err := h.auth.LogoutSession(r.Context(), principal.UserID, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "session ended"})
}

// LogoutAll ends every session the caller has.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.auth.LogoutAll(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LogoutAllResponse{SessionsEnded: n})
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Password     string `json:"password"`
	AccountType  string `json:"account_type"`
	ReferralCode string `json:"referral_code"`
}

// VerifyEmailRequest carries the emailed OTP.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendOTPRequest asks for a fresh verification code.
type ResendOTPRequest struct {
	Email string `json:"email"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse pairs the user with their tokens.
type LoginResponse struct {
	User   types.User         `json:"user"`
	Tokens services.TokenPair `json:"tokens"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutAllResponse reports how many sessions were ended.
type LogoutAllResponse struct {
	SessionsEnded int `json:"sessions_ended"`
}

// MessageResponse is a simple acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}
