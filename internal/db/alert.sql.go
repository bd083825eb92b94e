package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const alertColumns = `id, tenant_id, job_schedule_id, execution_id, severity, title, message, status,
  acknowledged_at, acknowledged_by, resolved_at, resolved_by, created_at,
  triggered_by_rule_id, triggered_execution_id, source, metadata`

func scanAlert(row interface{ Scan(dest ...any) error }) (Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.TenantID, &a.JobScheduleID, &a.ExecutionID, &a.Severity, &a.Title, &a.Message, &a.Status,
		&a.AcknowledgedAt, &a.AcknowledgedBy, &a.ResolvedAt, &a.ResolvedBy, &a.CreatedAt,
		&a.TriggeredByRuleID, &a.TriggeredExecutionID, &a.Source, &a.Metadata)
	return a, err
}

const getAlert = `-- name: GetAlert :one
SELECT ` + alertColumns + ` FROM alerts WHERE id = $1
`

func (q *Queries) GetAlert(ctx context.Context, id uuid.UUID) (Alert, error) {
	return scanAlert(q.db.QueryRow(ctx, getAlert, id))
}

const listAlerts = `-- name: ListAlerts :many
SELECT ` + alertColumns + ` FROM alerts WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListAlertsParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListAlerts(ctx context.Context, arg ListAlertsParams) ([]Alert, error) {
	rows, err := q.db.Query(ctx, listAlerts, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const countAlerts = `-- name: CountAlerts :one
SELECT count(*) FROM alerts WHERE tenant_id = $1
`

func (q *Queries) CountAlerts(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countAlerts, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAlert = `-- name: CreateAlert :one
INSERT INTO alerts (tenant_id, job_schedule_id, execution_id, severity, title, message, status, source, metadata, triggered_by_rule_id)
VALUES ($1, $2, $3, $4, $5, $6, 'open', $7, $8, $9)
RETURNING ` + alertColumns + `
`

type CreateAlertParams struct {
	TenantID          uuid.UUID
	JobScheduleID     pgtype.UUID
	ExecutionID       pgtype.UUID
	Severity          string
	Title             string
	Message           *string
	Source            *string
	Metadata          []byte
	TriggeredByRuleID pgtype.UUID
}

func (q *Queries) CreateAlert(ctx context.Context, arg CreateAlertParams) (Alert, error) {
	return scanAlert(q.db.QueryRow(ctx, createAlert, arg.TenantID, arg.JobScheduleID, arg.ExecutionID, arg.Severity,
		arg.Title, arg.Message, arg.Source, arg.Metadata, arg.TriggeredByRuleID))
}

const acknowledgeAlert = `-- name: AcknowledgeAlert :one
UPDATE alerts SET status = 'acknowledged', acknowledged_at = now(), acknowledged_by = $2
WHERE id = $1
RETURNING ` + alertColumns + `
`

type AcknowledgeAlertParams struct {
	ID             uuid.UUID
	AcknowledgedBy pgtype.UUID
}

func (q *Queries) AcknowledgeAlert(ctx context.Context, arg AcknowledgeAlertParams) (Alert, error) {
	return scanAlert(q.db.QueryRow(ctx, acknowledgeAlert, arg.ID, arg.AcknowledgedBy))
}

const resolveAlert = `-- name: ResolveAlert :one
UPDATE alerts SET status = 'resolved', resolved_at = now(), resolved_by = $2
WHERE id = $1
RETURNING ` + alertColumns + `
`

type ResolveAlertParams struct {
	ID         uuid.UUID
	ResolvedBy pgtype.UUID
}

func (q *Queries) ResolveAlert(ctx context.Context, arg ResolveAlertParams) (Alert, error) {
	return scanAlert(q.db.QueryRow(ctx, resolveAlert, arg.ID, arg.ResolvedBy))
}
