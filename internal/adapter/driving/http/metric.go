package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orchestrix/tracksync/internal/auth"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// MetricHandler exposes the pipeline's operational counter store (C17):
// ingest for out-of-process emitters (the embedding stage reports its
// throughput here), and read endpoints for dashboards and the alert-rule
// editor. The metric vocabulary is fixed; /names doubles as its
// discovery endpoint.
type MetricHandler struct {
	service port.MetricService
}

// NewMetricHandler creates a new metric handler.
func NewMetricHandler(service port.MetricService) *MetricHandler {
	return &MetricHandler{service: service}
}

// Routes registers metric routes.
func (h *MetricHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/ingest", h.Ingest)
	r.Post("/ingest/batch", h.IngestBatch)

	r.Get("/", h.Query)
	r.Get("/names", h.ListNames)
	r.Get("/latest/{name}", h.GetLatest)
	r.Get("/aggregate/{name}", h.GetAggregate)
	r.Get("/series/{name}", h.GetSeries)

	return r
}

// Ingest stores one data point.
func (h *MetricHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestMetricRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.Ingest(ctx, port.IngestMetricInput{
		TenantID:  user.TenantID,
		Name:      req.Name,
		Value:     req.Value,
		Labels:    req.Labels,
		Source:    req.Source,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownMetricName) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to ingest metric", "name", req.Name, "error", err)
		respondAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// IngestBatch stores many data points in one call.
func (h *MetricHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestMetricBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	metrics := make([]port.IngestMetricInput, len(req.Metrics))
	for i, m := range req.Metrics {
		metrics[i] = port.IngestMetricInput{
			TenantID:  user.TenantID,
			Name:      m.Name,
			Value:     m.Value,
			Labels:    m.Labels,
			Source:    m.Source,
			Timestamp: m.Timestamp,
		}
	}

	result, err := h.service.IngestBatch(ctx, port.IngestMetricBatchInput{TenantID: user.TenantID, Metrics: metrics})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBatchTooLarge), errors.Is(err, domain.ErrUnknownMetricName):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to ingest metric batch", "error", err)
			respondAppError(w, err)
		}
		return
	}

	respondJSON(w, http.StatusAccepted, DataResponse{Data: result})
}

// Query returns raw data points of one series.
func (h *MetricHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query, ok := h.queryFromRequest(w, r, user, r.URL.Query().Get("name"))
	if !ok {
		return
	}

	result, err := h.service.Query(ctx, query)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PaginatedResponse{
		Data: result.Metrics, Total: result.Total, Page: int32(result.Page), Limit: int32(result.Limit),
	})
}

// ListNames returns the series names this tenant has emitted.
func (h *MetricHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	names, err := h.service.ListNames(ctx, user.TenantID, r.URL.Query().Get("prefix"))
	if err != nil {
		slog.Error("failed to list metric names", "error", err)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: names})
}

// GetLatest returns the most recent data point of one series.
func (h *MetricHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	metric, err := h.service.GetLatest(ctx, user.TenantID, chi.URLParam(r, "name"), nil)
	if err != nil {
		if errors.Is(err, domain.ErrMetricNotFound) {
			respondError(w, http.StatusNotFound, "metric not found")
			return
		}
		slog.Error("failed to get latest metric", "error", err)
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: metric})
}

// GetAggregate summarizes one series over the query window.
func (h *MetricHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query, ok := h.queryFromRequest(w, r, user, chi.URLParam(r, "name"))
	if !ok {
		return
	}

	aggregate, err := h.service.GetAggregate(ctx, query)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: aggregate})
}

// GetSeries returns a time-bucketed view of one series.
func (h *MetricHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.FromContext(ctx)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query, ok := h.queryFromRequest(w, r, user, chi.URLParam(r, "name"))
	if !ok {
		return
	}

	bucketSize := time.Hour
	if raw := r.URL.Query().Get("bucket_seconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			respondError(w, http.StatusBadRequest, "bucket_seconds must be a positive integer")
			return
		}
		bucketSize = time.Duration(secs) * time.Second
	}

	buckets, err := h.service.GetSeries(ctx, query, bucketSize)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DataResponse{Data: buckets})
}

// queryFromRequest builds a MetricQuery from shared query params. Writes
// the response and returns ok=false on a malformed window.
func (h *MetricHandler) queryFromRequest(w http.ResponseWriter, r *http.Request, user *auth.User, name string) (domain.MetricQuery, bool) {
	q := domain.MetricQuery{
		TenantID: user.TenantID,
		Name:     name,
		// Default window: the trailing 24h.
		StartTime: time.Now().Add(-24 * time.Hour),
		EndTime:   time.Now(),
	}

	params := r.URL.Query()
	if raw := params.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start must be RFC3339")
			return q, false
		}
		q.StartTime = t
	}
	if raw := params.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end must be RFC3339")
			return q, false
		}
		q.EndTime = t
	}
	if raw := params.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if raw := params.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			q.Offset = n
		}
	}
	return q, true
}

func (h *MetricHandler) respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMetricQuery),
		errors.Is(err, domain.ErrInvalidMetricName),
		errors.Is(err, domain.ErrInvalidTimeRange):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("metric query failed", "error", err)
		respondAppError(w, err)
	}
}

// Request types

type IngestMetricRequest struct {
	Name      string            `json:"name" validate:"required"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Source    *string           `json:"source,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
}

type IngestMetricBatchRequest struct {
	Metrics []IngestMetricRequest `json:"metrics" validate:"required,min=1,dive"`
}
