package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/pkg/validation"
)

// AlertRuleService implements port.AlertRuleService
type AlertRuleService struct {
	ruleRepo        port.AlertRuleRepository
	alertService    port.AlertService
	jobScheduleRepo port.JobScheduleRepository
	syncExecutor    port.SyncCycleExecutor
	auditService    port.AuditService
	tenantSetter    port.TenantContextSetter
}

// NewAlertRuleService creates a new alert rule service
func NewAlertRuleService(
	ruleRepo port.AlertRuleRepository,
	alertService port.AlertService,
	jobScheduleRepo port.JobScheduleRepository,
	syncExecutor port.SyncCycleExecutor,
	auditService port.AuditService,
	tenantSetter port.TenantContextSetter,
) *AlertRuleService {
	return &AlertRuleService{
		ruleRepo:        ruleRepo,
		alertService:    alertService,
		jobScheduleRepo: jobScheduleRepo,
		syncExecutor:    syncExecutor,
		auditService:    auditService,
		tenantSetter:    tenantSetter,
	}
}

// List returns paginated alert rules for a tenant
func (s *AlertRuleService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*port.AlertRuleListResult, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, tenantID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit

	rules, err := s.ruleRepo.FindByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.ruleRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &port.AlertRuleListResult{
		Rules: rules,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// GetByID returns an alert rule by ID
func (s *AlertRuleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AlertRule, error) {
	return s.ruleRepo.FindByID(ctx, id)
}

// Create creates a new alert rule. The rule's threshold condition must
// target a metric in the pipeline vocabulary, or it could never fire.
func (s *AlertRuleService) Create(ctx context.Context, input port.CreateAlertRuleInput) (*domain.AlertRule, error) {
	if err := validation.Validate(func(v *validation.Validator) {
		v.Required("name", input.Name)
		v.Enum("condition_type", input.ConditionType, []string{"threshold"})
		var cond domain.ThresholdCondition
		if err := json.Unmarshal(input.ConditionConfig, &cond); err != nil {
			v.AddError("condition_config", "condition_config must be valid JSON")
			return
		}
		v.Custom("condition_config.metric_name", domain.KnownMetricName(cond.MetricName), "metric_name is not in the pipeline vocabulary")
		v.Enum("condition_config.operator", cond.Operator, []string{"gt", "gte", "lt", "lte", "eq", "neq"})
	}); err != nil {
		return nil, err
	}

	if err := s.tenantSetter.SetTenantContext(ctx, input.TenantID); err != nil {
		return nil, err
	}

	rule := &domain.AlertRule{
		ID:                   uuid.New(),
		TenantID:             input.TenantID,
		Name:                 input.Name,
		Description:          input.Description,
		Enabled:              true,
		ConditionType:        input.ConditionType,
		ConditionConfig:      input.ConditionConfig,
		Severity:             input.Severity,
		AlertTitleTemplate:   input.AlertTitleTemplate,
		AlertMessageTemplate: input.AlertMessageTemplate,
		TriggerJobScheduleID: input.TriggerJobScheduleID,
		TriggerInputTemplate: input.TriggerInputTemplate,
		CooldownSeconds:      input.CooldownSeconds,
		CreatedBy:            &input.CreatedBy,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	// Log audit
	s.logAudit(ctx, input.TenantID, &input.CreatedBy, domain.AuditEventAlertRuleCreated, rule.ID, nil, rule)

	return rule, nil
}

// Update updates an existing alert rule
func (s *AlertRuleService) Update(ctx context.Context, id uuid.UUID, input port.UpdateAlertRuleInput) (*domain.AlertRule, error) {
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldRule := *rule

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.Description != nil {
		rule.Description = input.Description
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if input.ConditionType != nil {
		rule.ConditionType = *input.ConditionType
	}
	if input.ConditionConfig != nil {
		rule.ConditionConfig = input.ConditionConfig
	}
	if input.Severity != nil {
		rule.Severity = *input.Severity
	}
	if input.AlertTitleTemplate != nil {
		rule.AlertTitleTemplate = *input.AlertTitleTemplate
	}
	if input.AlertMessageTemplate != nil {
		rule.AlertMessageTemplate = input.AlertMessageTemplate
	}
	if input.TriggerJobScheduleID != nil {
		rule.TriggerJobScheduleID = input.TriggerJobScheduleID
	}
	if input.TriggerInputTemplate != nil {
		rule.TriggerInputTemplate = input.TriggerInputTemplate
	}
	if input.CooldownSeconds != nil {
		rule.CooldownSeconds = *input.CooldownSeconds
	}
	rule.UpdatedAt = time.Now()

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	// Log audit
	s.logAudit(ctx, rule.TenantID, nil, domain.AuditEventAlertRuleUpdated, rule.ID, &oldRule, rule)

	return rule, nil
}

// Delete deletes an alert rule
func (s *AlertRuleService) Delete(ctx context.Context, id uuid.UUID) error {
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		return err
	}

	// Log audit
	s.logAudit(ctx, rule.TenantID, nil, domain.AuditEventAlertRuleDeleted, rule.ID, rule, nil)

	return nil
}

// Evaluate evaluates all enabled rules for a metric value
func (s *AlertRuleService) Evaluate(ctx context.Context, tenantID uuid.UUID, metricName string, value float64) error {
	rules, err := s.ruleRepo.FindEnabledByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if !rule.CanTrigger() || !rule.AppliesTo(metricName) {
			continue
		}

		triggered, err := rule.EvaluateThreshold(value)
		if err != nil {
			continue
		}

		if triggered {
			// Create alert
			_, err := s.alertService.Create(ctx, port.CreateAlertInput{
				TenantID:          tenantID,
				Severity:          rule.Severity,
				Title:             rule.AlertTitleTemplate,
				Message:           rule.AlertMessageTemplate,
				TriggeredByRuleID: &rule.ID,
			})
			if err != nil {
				continue
			}

			rule.MarkTriggered()
			s.ruleRepo.UpdateLastTriggered(ctx, rule.ID)

			// Re-trigger the bound job schedule's sync cycle, if configured.
			if rule.TriggerJobScheduleID != nil {
				s.rerunJobSchedule(ctx, *rule.TriggerJobScheduleID)
			}
		}
	}

	return nil
}

// rerunJobSchedule starts a fresh sync cycle for the job schedule bound to a
// triggered rule. Best-effort: failures here don't roll back the alert.
func (s *AlertRuleService) rerunJobSchedule(ctx context.Context, jobScheduleID uuid.UUID) {
	if s.jobScheduleRepo == nil || s.syncExecutor == nil {
		return
	}
	js, err := s.jobScheduleRepo.FindByID(ctx, jobScheduleID)
	if err != nil {
		return
	}
	s.syncExecutor.StartSyncCycle(ctx, js.TenantID, js.IntegrationID)
}

func (s *AlertRuleService) logAudit(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, eventType string, resourceID uuid.UUID, oldValue, newValue interface{}) {
	if s.auditService == nil {
		return
	}

	action := domain.ActionCreate
	switch eventType {
	case domain.AuditEventAlertRuleUpdated:
		action = domain.ActionUpdate
	case domain.AuditEventAlertRuleDeleted:
		action = domain.ActionDelete
	}

	log := domain.NewAuditLog(tenantID, userID, eventType, domain.ResourceTypeAlertRule, &resourceID, action).
		WithOldValue(oldValue).
		WithNewValue(newValue)

	s.auditService.Log(ctx, log)
}
