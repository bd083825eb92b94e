package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
)

func newMetricService() (*MetricService, *mocks.MockMetricRepository, *mocks.MockAlertRuleService) {
	repo := mocks.NewMockMetricRepository()
	rules := mocks.NewMockAlertRuleService()
	svc := NewMetricService(repo, rules, mocks.NewMockTenantContextSetter())
	return svc, repo, rules
}

func TestMetricService_Ingest_KnownNameIsSavedAndEvaluated(t *testing.T) {
	svc, repo, rules := newMetricService()
	tenantID := uuid.New()

	err := svc.Ingest(context.Background(), port.IngestMetricInput{
		TenantID: tenantID,
		Name:     domain.MetricRateLimitHits,
		Value:    1,
		Labels:   map[string]string{"job_name": "issues"},
	})
	require.NoError(t, err)
	assert.True(t, repo.SaveCalled)

	// Alert evaluation runs on a background goroutine.
	require.Eventually(t, func() bool { return rules.WasEvaluateCalled() }, time.Second, 5*time.Millisecond)
}

func TestMetricService_Ingest_UnknownNameRejected(t *testing.T) {
	svc, repo, _ := newMetricService()

	err := svc.Ingest(context.Background(), port.IngestMetricInput{
		TenantID: uuid.New(),
		Name:     "made_up_series",
		Value:    1,
	})
	require.ErrorIs(t, err, domain.ErrUnknownMetricName)
	assert.False(t, repo.SaveCalled)
}

func TestMetricService_Ingest_ExplicitTimestampKept(t *testing.T) {
	svc, repo, _ := newMetricService()
	tenantID := uuid.New()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := svc.Ingest(context.Background(), port.IngestMetricInput{
		TenantID:  tenantID,
		Name:      domain.MetricDLQRows,
		Value:     1,
		Timestamp: &stamp,
	})
	require.NoError(t, err)

	saved, err := repo.FindLatest(context.Background(), tenantID, domain.MetricDLQRows, nil)
	require.NoError(t, err)
	assert.True(t, saved.Timestamp.Equal(stamp))
}

func TestMetricService_IngestBatch_TooLarge(t *testing.T) {
	svc, repo, _ := newMetricService()

	metrics := make([]port.IngestMetricInput, maxMetricBatch+1)
	for i := range metrics {
		metrics[i] = port.IngestMetricInput{Name: domain.MetricIssuesProcessed, Value: 1}
	}
	_, err := svc.IngestBatch(context.Background(), port.IngestMetricBatchInput{
		TenantID: uuid.New(),
		Metrics:  metrics,
	})
	require.ErrorIs(t, err, domain.ErrBatchTooLarge)
	assert.False(t, repo.SaveBatchCalled)
}

func TestMetricService_IngestBatch_SavesAllAndEvaluatesPerName(t *testing.T) {
	svc, repo, rules := newMetricService()
	tenantID := uuid.New()

	result, err := svc.IngestBatch(context.Background(), port.IngestMetricBatchInput{
		TenantID: tenantID,
		Metrics: []port.IngestMetricInput{
			{Name: domain.MetricIssuesProcessed, Value: 10},
			{Name: domain.MetricIssuesProcessed, Value: 12},
			{Name: domain.MetricChangelogsInserted, Value: 30},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Ingested)
	assert.Zero(t, result.Failed)
	assert.True(t, repo.SaveBatchCalled)

	require.Eventually(t, func() bool { return rules.WasEvaluateCalled() }, time.Second, 5*time.Millisecond)
}

func TestMetricService_IngestBatch_UnknownNameRejectsWholeBatch(t *testing.T) {
	svc, repo, _ := newMetricService()

	_, err := svc.IngestBatch(context.Background(), port.IngestMetricBatchInput{
		TenantID: uuid.New(),
		Metrics: []port.IngestMetricInput{
			{Name: domain.MetricIssuesProcessed, Value: 10},
			{Name: "typo_total", Value: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrUnknownMetricName)
	assert.False(t, repo.SaveBatchCalled)
}

func TestMetricService_Query_RequiresTenantAndName(t *testing.T) {
	svc, _, _ := newMetricService()

	_, err := svc.Query(context.Background(), domain.MetricQuery{Name: domain.MetricDLQRows})
	assert.ErrorIs(t, err, domain.ErrInvalidMetricQuery)

	_, err = svc.Query(context.Background(), domain.MetricQuery{TenantID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrInvalidMetricName)
}

func TestMetricService_Query_RejectsInvertedWindow(t *testing.T) {
	svc, _, _ := newMetricService()

	_, err := svc.Query(context.Background(), domain.MetricQuery{
		TenantID:  uuid.New(),
		Name:      domain.MetricDLQRows,
		StartTime: time.Now(),
		EndTime:   time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}

func TestMetricService_Query_PaginationMath(t *testing.T) {
	svc, repo, _ := newMetricService()
	tenantID := uuid.New()

	for i := 0; i < 5; i++ {
		repo.AddMetric(&domain.Metric{
			ID: uuid.New(), TenantID: tenantID, Name: domain.MetricDLQRows, Value: float64(i), Timestamp: time.Now(),
		})
	}

	result, err := svc.Query(context.Background(), domain.MetricQuery{
		TenantID: tenantID,
		Name:     domain.MetricDLQRows,
		Limit:    2,
		Offset:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.Page)
}

func TestMetricService_GetLatest_NotFound(t *testing.T) {
	svc, _, _ := newMetricService()

	_, err := svc.GetLatest(context.Background(), uuid.New(), domain.MetricStuckRunning, nil)
	assert.ErrorIs(t, err, domain.ErrMetricNotFound)
}

func TestMetricService_ListNames(t *testing.T) {
	svc, repo, _ := newMetricService()
	repo.AddName(domain.MetricDLQRows)
	repo.AddName(domain.MetricRateLimitHits)

	names, err := svc.ListNames(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestMetricNames_CoversEveryEmitter(t *testing.T) {
	// Every name the worker/scheduler code emits must be in the catalog,
	// or its ingest would fail at runtime.
	for _, name := range []string{
		domain.MetricRateLimitHits, domain.MetricDLQRows,
		domain.MetricJobScheduleFailed, domain.MetricStuckRunning,
	} {
		assert.True(t, domain.KnownMetricName(name), name)
	}
	assert.False(t, domain.KnownMetricName("http_requests_total"))
	assert.Len(t, domain.MetricNames(), 8)
}
