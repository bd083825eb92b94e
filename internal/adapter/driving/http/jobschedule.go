package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/auth"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// JobScheduleHandler handles job schedule HTTP requests, including the
// run_sync entrypoint from spec.md §6.
type JobScheduleHandler struct {
	service port.JobScheduleService
}

// NewJobScheduleHandler creates a new job schedule handler
func NewJobScheduleHandler(service port.JobScheduleService) *JobScheduleHandler {
	return &JobScheduleHandler{service: service}
}

// Routes registers job schedule routes
func (h *JobScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/pause", h.Pause)
	r.Post("/{id}/resume", h.Resume)
	r.Post("/{id}/run", h.Run)
	r.Get("/{id}/executions", h.ListExecutions)

	return r
}

// List returns all job schedules for the tenant
func (h *JobScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit := parsePagination(r)

	result, err := h.service.List(ctx, user.TenantID, page, limit)
	if err != nil {
		slog.Error("failed to list job schedules", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list job schedules")
		return
	}

	respondJSON(w, http.StatusOK, PaginatedResponse{
		Data:  result.JobSchedules,
		Total: result.Total,
		Page:  int32(page),
		Limit: int32(limit),
	})
}

// Get returns a single job schedule
func (h *JobScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	schedule, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		slog.Error("failed to get job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get job schedule")
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: schedule})
}

// Create creates a new job schedule
func (h *JobScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateJobScheduleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	schedule, err := h.service.Create(ctx, port.CreateJobScheduleInput{
		TenantID:       user.TenantID,
		IntegrationID:  req.IntegrationID,
		JobName:        req.JobName,
		ExecutionOrder: req.ExecutionOrder,
	})
	if err != nil {
		slog.Error("failed to create job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create job schedule")
		return
	}

	respondJSON(w, http.StatusCreated, DataResponse{Data: schedule})
}

// Update edits a job schedule's execution order or next-run deadline
func (h *JobScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req UpdateJobScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedule, err := h.service.Update(ctx, id, port.UpdateJobScheduleInput{
		ExecutionOrder: req.ExecutionOrder,
		NextRun:        req.NextRun,
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		slog.Error("failed to update job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update job schedule")
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: schedule})
}

// Delete pauses a job schedule; the row is kept
func (h *JobScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		slog.Error("failed to delete job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete job schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Pause takes a job schedule out of the cycling rotation
func (h *JobScheduleHandler) Pause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Pause(ctx, id); err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		slog.Error("failed to pause job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to pause job schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resume returns a paused job schedule to the cycling rotation
func (h *JobScheduleHandler) Resume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Resume(ctx, id); err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		slog.Error("failed to resume job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to resume job schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Run is the run_sync entrypoint from spec.md §6: marks the schedule
// RUNNING synchronously and returns 202 with the created Execution, or 409
// if it is already running.
func (h *JobScheduleHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req RunSyncRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	execution, err := h.service.RunSync(ctx, id, user.ID, port.RunSyncInput{
		ExecutionMode:  port.ExecutionMode(req.ExecutionMode),
		CustomQuery:    req.CustomQuery,
		TargetProjects: req.TargetProjects,
	})
	if err != nil {
		if errors.Is(err, domain.ErrJobScheduleNotFound) {
			respondError(w, http.StatusNotFound, "job schedule not found")
			return
		}
		if errors.Is(err, domain.ErrJobScheduleAlreadyRunning) {
			respondError(w, http.StatusConflict, "job schedule is already running")
			return
		}
		slog.Error("failed to run job schedule", "error", err)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, DataResponse{Data: execution})
}

// ListExecutions returns paginated executions for a job schedule
func (h *JobScheduleHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	page, limit := parsePagination(r)

	result, err := h.service.ListExecutions(ctx, id, page, limit)
	if err != nil {
		slog.Error("failed to list executions for job schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	respondJSON(w, http.StatusOK, PaginatedResponse{
		Data:  result.Executions,
		Total: result.Total,
		Page:  int32(page),
		Limit: int32(limit),
	})
}

// Request types

type CreateJobScheduleRequest struct {
	IntegrationID  uuid.UUID `json:"integration_id" validate:"required"`
	JobName        string    `json:"job_name" validate:"required"`
	ExecutionOrder int       `json:"execution_order" validate:"gte=0"`
}

type UpdateJobScheduleRequest struct {
	ExecutionOrder *int       `json:"execution_order,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
}

type RunSyncRequest struct {
	ExecutionMode  string   `json:"execution_mode"`
	CustomQuery    *string  `json:"custom_query,omitempty"`
	TargetProjects []string `json:"target_projects,omitempty"`
}
