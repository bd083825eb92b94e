package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
)

func newAlertRuleFixture() (*AlertRuleService, *mocks.MockAlertRepository, *mocks.MockAlertRuleRepository, *mocks.MockSyncCycleExecutor, *mocks.MockJobScheduleRepository) {
	alertRepo := mocks.NewMockAlertRepository()
	ruleRepo := mocks.NewMockAlertRuleRepository()
	scheduleRepo := mocks.NewMockJobScheduleRepository()
	executor := mocks.NewMockSyncCycleExecutor()
	tenantSetter := mocks.NewMockTenantContextSetter()
	auditService := mocks.NewMockAuditService()

	alertService := NewAlertService(alertRepo, auditService, tenantSetter, nil)
	svc := NewAlertRuleService(ruleRepo, alertService, scheduleRepo, executor, auditService, tenantSetter)
	return svc, alertRepo, ruleRepo, executor, scheduleRepo
}

func thresholdConfig(t *testing.T, metricName, operator string, threshold float64) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.ThresholdCondition{
		MetricName: metricName, Operator: operator, Threshold: threshold,
	})
	require.NoError(t, err)
	return raw
}

func TestAlertRuleService_Create_RejectsUnknownMetric(t *testing.T) {
	svc, _, ruleRepo, _, _ := newAlertRuleFixture()

	_, err := svc.Create(context.Background(), port.CreateAlertRuleInput{
		TenantID:           uuid.New(),
		Name:               "bad rule",
		ConditionType:      "threshold",
		ConditionConfig:    thresholdConfig(t, "no_such_series", "gt", 5),
		Severity:           domain.AlertSeverityWarning,
		AlertTitleTemplate: "boom",
	})
	require.Error(t, err)
	assert.False(t, ruleRepo.SaveCalled)
}

func TestAlertRuleService_Create_RejectsBadOperator(t *testing.T) {
	svc, _, ruleRepo, _, _ := newAlertRuleFixture()

	_, err := svc.Create(context.Background(), port.CreateAlertRuleInput{
		TenantID:           uuid.New(),
		Name:               "bad operator",
		ConditionType:      "threshold",
		ConditionConfig:    thresholdConfig(t, domain.MetricDLQRows, "above", 5),
		Severity:           domain.AlertSeverityWarning,
		AlertTitleTemplate: "boom",
	})
	require.Error(t, err)
	assert.False(t, ruleRepo.SaveCalled)
}

func TestAlertRuleService_Create_ValidRule(t *testing.T) {
	svc, _, ruleRepo, _, _ := newAlertRuleFixture()

	rule, err := svc.Create(context.Background(), port.CreateAlertRuleInput{
		TenantID:           uuid.New(),
		Name:               "dlq pressure",
		ConditionType:      "threshold",
		ConditionConfig:    thresholdConfig(t, domain.MetricDLQRows, "gte", 1),
		Severity:           domain.AlertSeverityCritical,
		AlertTitleTemplate: "dead letters accumulating",
	})
	require.NoError(t, err)
	assert.True(t, rule.Enabled)
	assert.True(t, ruleRepo.SaveCalled)
}

func TestAlertRuleService_Evaluate_IgnoresOtherMetrics(t *testing.T) {
	svc, alertRepo, ruleRepo, _, _ := newAlertRuleFixture()
	tenantID := uuid.New()

	ruleRepo.AddRule(&domain.AlertRule{
		ID: uuid.New(), TenantID: tenantID, Name: "rate limits", Enabled: true,
		ConditionType:      "threshold",
		ConditionConfig:    thresholdConfig(t, domain.MetricRateLimitHits, "gte", 1),
		Severity:           domain.AlertSeverityWarning,
		AlertTitleTemplate: "provider throttling",
	})

	// A DLQ data point must not fire a rate-limit rule.
	require.NoError(t, svc.Evaluate(context.Background(), tenantID, domain.MetricDLQRows, 100))
	assert.False(t, alertRepo.SaveCalled)

	require.NoError(t, svc.Evaluate(context.Background(), tenantID, domain.MetricRateLimitHits, 1))
	assert.True(t, alertRepo.SaveCalled)
}

func TestAlertRuleService_Evaluate_RespectsCooldown(t *testing.T) {
	svc, alertRepo, ruleRepo, _, _ := newAlertRuleFixture()
	tenantID := uuid.New()

	justFired := time.Now().Add(-time.Second)
	ruleRepo.AddRule(&domain.AlertRule{
		ID: uuid.New(), TenantID: tenantID, Name: "cooling down", Enabled: true,
		ConditionType:      "threshold",
		ConditionConfig:    thresholdConfig(t, domain.MetricDLQRows, "gt", 0),
		Severity:           domain.AlertSeverityWarning,
		AlertTitleTemplate: "dlq",
		CooldownSeconds:    3600,
		LastTriggeredAt:    &justFired,
	})

	require.NoError(t, svc.Evaluate(context.Background(), tenantID, domain.MetricDLQRows, 10))
	assert.False(t, alertRepo.SaveCalled)
}

func TestAlertRuleService_Evaluate_TriggersBoundJobSchedule(t *testing.T) {
	svc, _, ruleRepo, executor, scheduleRepo := newAlertRuleFixture()
	tenantID := uuid.New()
	integrationID := uuid.New()

	schedule := &domain.JobSchedule{
		ID: uuid.New(), TenantID: tenantID, IntegrationID: integrationID,
		JobName: "issues", Status: domain.JobScheduleReady, ExecutionOrder: 3,
	}
	scheduleRepo.AddJobSchedule(schedule)

	ruleRepo.AddRule(&domain.AlertRule{
		ID: uuid.New(), TenantID: tenantID, Name: "stuck, re-kick", Enabled: true,
		ConditionType:        "threshold",
		ConditionConfig:      thresholdConfig(t, domain.MetricStuckRunning, "gt", 1800),
		Severity:             domain.AlertSeverityCritical,
		AlertTitleTemplate:   "schedule stuck",
		TriggerJobScheduleID: &schedule.ID,
	})

	require.NoError(t, svc.Evaluate(context.Background(), tenantID, domain.MetricStuckRunning, 3600))
	assert.True(t, executor.StartCalled)
	assert.Equal(t, integrationID, executor.LastIntegrationID)
}
