package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// maxMetricBatch bounds one IngestBatch call; larger batches should be
// split by the emitter.
const maxMetricBatch = 10000

// MetricService implements port.MetricService: the durable store for the
// pipeline's operational counters, with alert-rule evaluation hooked onto
// every ingest so C15 reacts to rate-limit/DLQ/failure pressure as it
// lands.
type MetricService struct {
	metricRepo   port.MetricRepository
	alertRuleSvc port.AlertRuleService
	tenantSetter port.TenantContextSetter
}

// NewMetricService creates a new metric service. alertRuleSvc may be nil
// when no alerting is wired (tests, one-off tools).
func NewMetricService(
	metricRepo port.MetricRepository,
	alertRuleSvc port.AlertRuleService,
	tenantSetter port.TenantContextSetter,
) *MetricService {
	return &MetricService{
		metricRepo:   metricRepo,
		alertRuleSvc: alertRuleSvc,
		tenantSetter: tenantSetter,
	}
}

// Ingest stores one data point and kicks off alert evaluation.
func (s *MetricService) Ingest(ctx context.Context, input port.IngestMetricInput) error {
	metric, err := s.toMetric(input.TenantID, input, time.Now())
	if err != nil {
		return err
	}

	if err := s.tenantSetter.SetTenantContext(ctx, input.TenantID); err != nil {
		return err
	}
	if err := s.metricRepo.Save(ctx, metric); err != nil {
		return err
	}

	// Evaluation must not block the worker that emitted the point.
	go s.evaluate(input.TenantID, map[string]float64{input.Name: input.Value})

	return nil
}

// IngestBatch stores up to maxMetricBatch points in one round trip.
func (s *MetricService) IngestBatch(ctx context.Context, input port.IngestMetricBatchInput) (*port.IngestBatchResult, error) {
	if len(input.Metrics) > maxMetricBatch {
		return nil, domain.ErrBatchTooLarge
	}

	now := time.Now()
	metrics := make([]*domain.Metric, 0, len(input.Metrics))
	lastValues := make(map[string]float64, len(input.Metrics))
	for _, m := range input.Metrics {
		metric, err := s.toMetric(input.TenantID, m, now)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
		lastValues[m.Name] = m.Value
	}

	if err := s.tenantSetter.SetTenantContext(ctx, input.TenantID); err != nil {
		return nil, err
	}
	count, err := s.metricRepo.SaveBatch(ctx, metrics)
	if err != nil {
		return &port.IngestBatchResult{Failed: len(input.Metrics), Errors: []string{err.Error()}}, err
	}

	// One evaluation per distinct name, against the batch's last value.
	go s.evaluate(input.TenantID, lastValues)

	return &port.IngestBatchResult{Ingested: count}, nil
}

func (s *MetricService) toMetric(tenantID uuid.UUID, input port.IngestMetricInput, now time.Time) (*domain.Metric, error) {
	if !domain.KnownMetricName(input.Name) {
		return nil, domain.ErrUnknownMetricName
	}
	timestamp := now
	if input.Timestamp != nil {
		timestamp = *input.Timestamp
	}
	m := &domain.Metric{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      input.Name,
		Value:     input.Value,
		Labels:    input.Labels,
		Source:    input.Source,
		Timestamp: timestamp,
		CreatedAt: now,
	}
	if !m.IsValid() {
		return nil, domain.ErrInvalidMetricQuery
	}
	return m, nil
}

// Query returns raw data points of one series.
func (s *MetricService) Query(ctx context.Context, query domain.MetricQuery) (*port.MetricQueryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := s.tenantSetter.SetTenantContext(ctx, query.TenantID); err != nil {
		return nil, err
	}

	metrics, err := s.metricRepo.FindByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	total, err := s.metricRepo.CountByQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	page := 1
	if query.Offset > 0 && query.Limit > 0 {
		page = (query.Offset / query.Limit) + 1
	}
	return &port.MetricQueryResult{Metrics: metrics, Total: total, Page: page, Limit: query.Limit}, nil
}

// GetLatest returns the most recent data point of a series.
func (s *MetricService) GetLatest(ctx context.Context, tenantID uuid.UUID, name string, labels map[string]string) (*domain.Metric, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.metricRepo.FindLatest(ctx, tenantID, name, labels)
}

// GetAggregate summarizes a series over the query window.
func (s *MetricService) GetAggregate(ctx context.Context, query domain.MetricQuery) (*domain.MetricAggregate, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := s.tenantSetter.SetTenantContext(ctx, query.TenantID); err != nil {
		return nil, err
	}
	return s.metricRepo.GetAggregate(ctx, query)
}

// GetSeries returns a time-bucketed view of a series.
func (s *MetricService) GetSeries(ctx context.Context, query domain.MetricQuery, bucketSize time.Duration) ([]*domain.TimeBucket, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := s.tenantSetter.SetTenantContext(ctx, query.TenantID); err != nil {
		return nil, err
	}
	return s.metricRepo.GetSeries(ctx, query, bucketSize)
}

// ListNames returns the distinct series names a tenant has emitted.
func (s *MetricService) ListNames(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.metricRepo.ListNames(ctx, tenantID, prefix)
}

// evaluate runs alert-rule evaluation for each (name, value) pair on a
// bounded background context.
func (s *MetricService) evaluate(tenantID uuid.UUID, values map[string]float64) {
	if s.alertRuleSvc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for name, value := range values {
		_ = s.alertRuleSvc.Evaluate(ctx, tenantID, name, value)
	}
}
