package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const alertRuleColumns = `id, tenant_id, name, description, enabled, condition_type, condition_config,
  severity, alert_title_template, alert_message_template, trigger_job_schedule_id, trigger_input_template,
  cooldown_seconds, last_triggered_at, created_by, created_at, updated_at`

func scanAlertRule(row interface{ Scan(dest ...any) error }) (AlertRule, error) {
	var a AlertRule
	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Description, &a.Enabled, &a.ConditionType, &a.ConditionConfig,
		&a.Severity, &a.AlertTitleTemplate, &a.AlertMessageTemplate, &a.TriggerJobScheduleID, &a.TriggerInputTemplate,
		&a.CooldownSeconds, &a.LastTriggeredAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const getAlertRule = `-- name: GetAlertRule :one
SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE id = $1 AND tenant_id = $2
`

type GetAlertRuleParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetAlertRule(ctx context.Context, arg GetAlertRuleParams) (AlertRule, error) {
	return scanAlertRule(q.db.QueryRow(ctx, getAlertRule, arg.ID, arg.TenantID))
}

const listAlertRules = `-- name: ListAlertRules :many
SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListAlertRulesParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListAlertRules(ctx context.Context, arg ListAlertRulesParams) ([]AlertRule, error) {
	rows, err := q.db.Query(ctx, listAlertRules, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AlertRule
	for rows.Next() {
		a, err := scanAlertRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const listEnabledAlertRules = `-- name: ListEnabledAlertRules :many
SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE tenant_id = $1 AND enabled = true ORDER BY created_at ASC
`

func (q *Queries) ListEnabledAlertRules(ctx context.Context, tenantID uuid.UUID) ([]AlertRule, error) {
	rows, err := q.db.Query(ctx, listEnabledAlertRules, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AlertRule
	for rows.Next() {
		a, err := scanAlertRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const countAlertRules = `-- name: CountAlertRules :one
SELECT count(*) FROM alert_rules WHERE tenant_id = $1
`

func (q *Queries) CountAlertRules(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countAlertRules, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAlertRule = `-- name: CreateAlertRule :one
INSERT INTO alert_rules (tenant_id, name, description, enabled, condition_type, condition_config, severity,
  alert_title_template, alert_message_template, trigger_job_schedule_id, trigger_input_template, cooldown_seconds, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + alertRuleColumns + `
`

type CreateAlertRuleParams struct {
	TenantID             uuid.UUID
	Name                 string
	Description          *string
	Enabled              bool
	ConditionType        string
	ConditionConfig      []byte
	Severity             string
	AlertTitleTemplate   string
	AlertMessageTemplate *string
	TriggerJobScheduleID pgtype.UUID
	TriggerInputTemplate []byte
	CooldownSeconds      int32
	CreatedBy            pgtype.UUID
}

func (q *Queries) CreateAlertRule(ctx context.Context, arg CreateAlertRuleParams) (AlertRule, error) {
	return scanAlertRule(q.db.QueryRow(ctx, createAlertRule, arg.TenantID, arg.Name, arg.Description, arg.Enabled,
		arg.ConditionType, arg.ConditionConfig, arg.Severity, arg.AlertTitleTemplate, arg.AlertMessageTemplate,
		arg.TriggerJobScheduleID, arg.TriggerInputTemplate, arg.CooldownSeconds, arg.CreatedBy))
}

const updateAlertRule = `-- name: UpdateAlertRule :one
UPDATE alert_rules SET
  name = $3,
  description = $4,
  enabled = $5,
  condition_type = $6,
  condition_config = $7,
  severity = $8,
  alert_title_template = $9,
  alert_message_template = $10,
  trigger_job_schedule_id = $11,
  trigger_input_template = $12,
  cooldown_seconds = $13,
  updated_at = now()
WHERE id = $1 AND tenant_id = $2
RETURNING ` + alertRuleColumns + `
`

type UpdateAlertRuleParams struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Name                 string
	Description          *string
	Enabled              bool
	ConditionType        string
	ConditionConfig      []byte
	Severity             string
	AlertTitleTemplate   string
	AlertMessageTemplate *string
	TriggerJobScheduleID pgtype.UUID
	TriggerInputTemplate []byte
	CooldownSeconds      int32
}

func (q *Queries) UpdateAlertRule(ctx context.Context, arg UpdateAlertRuleParams) (AlertRule, error) {
	return scanAlertRule(q.db.QueryRow(ctx, updateAlertRule, arg.ID, arg.TenantID, arg.Name, arg.Description, arg.Enabled,
		arg.ConditionType, arg.ConditionConfig, arg.Severity, arg.AlertTitleTemplate, arg.AlertMessageTemplate,
		arg.TriggerJobScheduleID, arg.TriggerInputTemplate, arg.CooldownSeconds))
}

const deleteAlertRule = `-- name: DeleteAlertRule :exec
DELETE FROM alert_rules WHERE id = $1 AND tenant_id = $2
`

type DeleteAlertRuleParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) DeleteAlertRule(ctx context.Context, arg DeleteAlertRuleParams) error {
	_, err := q.db.Exec(ctx, deleteAlertRule, arg.ID, arg.TenantID)
	return err
}

const updateAlertRuleLastTriggered = `-- name: UpdateAlertRuleLastTriggered :exec
UPDATE alert_rules SET last_triggered_at = now() WHERE id = $1
`

func (q *Queries) UpdateAlertRuleLastTriggered(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, updateAlertRuleLastTriggered, id)
	return err
}
