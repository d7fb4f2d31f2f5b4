package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/types"
)

// Listing images are capped at 10 MiB.
const maxImageBytes = 10 << 20

// PropertyHandler exposes the investment listing endpoints. Reads are
// public; writes are gated behind admin permissions.
type PropertyHandler struct {
	properties *services.PropertyService
}

func NewPropertyHandler(properties *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// PropertyRouter registers listing routes.
func PropertyRouter(r chi.Router, properties *services.PropertyService, guard *Guard) {
	handler := NewPropertyHandler(properties)

	r.Get("/", handler.List)
	r.Get("/{propertyID}", handler.Get)
	r.Get("/images/*", handler.Image)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.With(RequirePermission("property.create_all")).Post("/", handler.Create)
		r.With(RequirePermission("property.update_all")).Put("/{propertyID}", handler.Update)
		r.With(RequirePermission("property.delete_all")).Delete("/{propertyID}", handler.Delete)
		r.With(RequirePermission("property.update_all")).Post("/{propertyID}/images", handler.UploadImage)
	})
}

// List returns open listings with pagination.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	properties, total, err := h.properties.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PropertyListResponse{Properties: properties, Total: total})
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "propertyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	property, err := h.properties.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	property, err := h.properties.Create(r.Context(), req.toProperty())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, property)
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "propertyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req PropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.properties.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	updated := req.toProperty()
	updated.ID = id
	updated.AvailableUnits = existing.AvailableUnits
	updated.ImageKeys = existing.ImageKeys
	if req.Status != "" {
		updated.Status = req.Status
	} else {
		updated.Status = existing.Status
	}

	property, err := h.properties.Update(r.Context(), updated)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "propertyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.properties.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "property deleted"})
}

// UploadImage accepts a multipart "image" part and attaches it to the
// listing.
func (h *PropertyHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "propertyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "file must be an image")
		return
	}

	property, err := h.properties.AttachImage(r.Context(), id, file, header.Size, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

// Image streams a stored listing image by its object key.
func (h *PropertyHandler) Image(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing image key")
		return
	}
	rc, err := h.properties.OpenImage(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()
	_, _ = io.Copy(w, rc)
}

var (
	errMissingFields  = errors.New("missing required fields")
	errInvalidAmounts = errors.New("unit price and total units must be positive")
	errInvalidStatus  = errors.New("invalid status")
)

// PropertyRequest is the create/update payload for a listing.
type PropertyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	UnitPrice   int64  `json:"unit_price"`
	TotalUnits  int    `json:"total_units"`
	ExpectedROI int    `json:"expected_roi"`
	Status      string `json:"status"`
}

func (req PropertyRequest) validate() error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Location) == "" {
		return errMissingFields
	}
	if req.UnitPrice <= 0 || req.TotalUnits <= 0 {
		return errInvalidAmounts
	}
	switch req.Status {
	case "", types.PropertyStatusDraft, types.PropertyStatusOpen,
		types.PropertyStatusSoldOut, types.PropertyStatusArchived:
		return nil
	default:
		return errInvalidStatus
	}
}

func (req PropertyRequest) toProperty() types.Property {
	return types.Property{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		UnitPrice:   req.UnitPrice,
		TotalUnits:  req.TotalUnits,
		ExpectedROI: req.ExpectedROI,
		Status:      req.Status,
	}
}

// PropertyListResponse pages through listings.
type PropertyListResponse struct {
	Properties []types.Property `json:"properties"`
	Total      int              `json:"total"`
}
