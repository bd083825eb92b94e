package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/auth"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// IntegrationHandler handles integration HTTP requests
type IntegrationHandler struct {
	service port.IntegrationService
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(service port.IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// Routes registers integration routes
func (h *IntegrationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns all integrations for the tenant
func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit := parsePagination(r)

	result, err := h.service.List(ctx, user.TenantID, page, limit)
	if err != nil {
		slog.Error("failed to list integrations", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list integrations")
		return
	}

	respondJSON(w, http.StatusOK, PaginatedResponse{
		Data:  result.Integrations,
		Total: result.Total,
		Page:  int32(page),
		Limit: int32(limit),
	})
}

// Get returns a single integration. Credentials are never returned in the
// clear; EncryptedCreds is serialized as an opaque byte blob.
func (h *IntegrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	integration, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrIntegrationNotFound) {
			respondError(w, http.StatusNotFound, "integration not found")
			return
		}
		slog.Error("failed to get integration", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get integration")
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: integration})
}

// Create creates a new integration, encrypting its credentials at rest
func (h *IntegrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateIntegrationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	integration, err := h.service.Create(ctx, port.CreateIntegrationInput{
		TenantID:         user.TenantID,
		Provider:         req.Provider,
		Credentials:      req.Credentials,
		BaseURL:          req.BaseURL,
		BaseSearchFilter: req.BaseSearchFilter,
	})
	if err != nil {
		slog.Error("failed to create integration", "error", err)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, DataResponse{Data: integration})
}

// Update edits an integration, optionally rotating its credentials
func (h *IntegrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req UpdateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	integration, err := h.service.Update(ctx, id, port.UpdateIntegrationInput{
		Credentials:      req.Credentials,
		BaseURL:          req.BaseURL,
		BaseSearchFilter: req.BaseSearchFilter,
		Active:           req.Active,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIntegrationNotFound) {
			respondError(w, http.StatusNotFound, "integration not found")
			return
		}
		slog.Error("failed to update integration", "error", err)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: integration})
}

// Delete soft-deletes an integration
func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrIntegrationNotFound) {
			respondError(w, http.StatusNotFound, "integration not found")
			return
		}
		slog.Error("failed to delete integration", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete integration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Request types

type CreateIntegrationRequest struct {
	Provider         string             `json:"provider" validate:"required,oneof=jira github"`
	Credentials      domain.Credentials `json:"credentials" validate:"required"`
	BaseURL          string             `json:"base_url" validate:"required,url"`
	BaseSearchFilter string             `json:"base_search_filter"`
}

type UpdateIntegrationRequest struct {
	Credentials      *domain.Credentials `json:"credentials,omitempty"`
	BaseURL          *string             `json:"base_url,omitempty" validate:"omitempty,url"`
	BaseSearchFilter *string             `json:"base_search_filter,omitempty"`
	Active           *bool               `json:"active,omitempty"`
}
