package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/types"
)

// KYC documents are capped at 10 MiB.
const maxDocumentBytes = 10 << 20

// KYCHandler covers document submission for users and review for
// admins.
type KYCHandler struct {
	kyc *services.KYCService
}

func NewKYCHandler(kyc *services.KYCService) *KYCHandler {
	return &KYCHandler{kyc: kyc}
}

// KYCRouter registers the document routes.
func KYCRouter(r chi.Router, kyc *services.KYCService, guard *Guard) {
	handler := NewKYCHandler(kyc)

	r.Use(guard.RequireAuth)
	r.With(RequirePermission("kyc.submit_own")).Post("/", handler.Submit)
	r.With(RequirePermission("kyc.submit_own")).Get("/", handler.ListMine)
	r.Get("/{documentID}/file", handler.File)
}

// Submit accepts a multipart "document" part plus a document_type field.
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing document file")
		return
	}
	defer file.Close()

	documentType := r.FormValue("document_type")
	switch documentType {
	case types.KYCDocumentPassport, types.KYCDocumentNationalID,
		types.KYCDocumentDriversLicense, types.KYCDocumentUtilityBill:
	default:
		writeError(w, http.StatusBadRequest, "invalid document type")
		return
	}

	doc, err := h.kyc.Submit(r.Context(), principal.UserID, documentType,
		file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListMine returns the caller's submitted documents.
func (h *KYCHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	docs, err := h.kyc.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// File streams the stored document. Owners can always fetch their own
// files; reviewers need kyc.review_all.
func (h *KYCHandler) File(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := urlParamInt(r, "documentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, rc, err := h.kyc.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	if doc.UserID != principal.UserID && !principal.Has("kyc.review_all") {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	_, _ = io.Copy(w, rc)
}
