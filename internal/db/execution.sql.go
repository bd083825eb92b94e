package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const executionColumns = `id, tenant_id, job_schedule_id, temporal_workflow_id, temporal_run_id, status,
  input, output, error, started_at, completed_at, created_by, created_at, triggered_by`

func scanExecution(row interface{ Scan(dest ...any) error }) (Execution, error) {
	var e Execution
	err := row.Scan(&e.ID, &e.TenantID, &e.JobScheduleID, &e.TemporalWorkflowID, &e.TemporalRunID, &e.Status,
		&e.Input, &e.Output, &e.Error, &e.StartedAt, &e.CompletedAt, &e.CreatedBy, &e.CreatedAt, &e.TriggeredBy)
	return e, err
}

const getExecution = `-- name: GetExecution :one
SELECT ` + executionColumns + ` FROM executions WHERE id = $1
`

func (q *Queries) GetExecution(ctx context.Context, id uuid.UUID) (Execution, error) {
	return scanExecution(q.db.QueryRow(ctx, getExecution, id))
}

const listExecutions = `-- name: ListExecutions :many
SELECT ` + executionColumns + ` FROM executions WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListExecutionsParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListExecutions(ctx context.Context, arg ListExecutionsParams) ([]Execution, error) {
	rows, err := q.db.Query(ctx, listExecutions, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const listExecutionsByJobSchedule = `-- name: ListExecutionsByJobSchedule :many
SELECT ` + executionColumns + ` FROM executions WHERE job_schedule_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListExecutionsByJobScheduleParams struct {
	JobScheduleID uuid.UUID
	Limit         int32
	Offset        int32
}

func (q *Queries) ListExecutionsByJobSchedule(ctx context.Context, arg ListExecutionsByJobScheduleParams) ([]Execution, error) {
	rows, err := q.db.Query(ctx, listExecutionsByJobSchedule, arg.JobScheduleID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countExecutions = `-- name: CountExecutions :one
SELECT count(*) FROM executions WHERE tenant_id = $1
`

func (q *Queries) CountExecutions(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countExecutions, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createExecution = `-- name: CreateExecution :one
INSERT INTO executions (tenant_id, job_schedule_id, status, input, created_by, triggered_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + executionColumns + `
`

type CreateExecutionParams struct {
	TenantID      uuid.UUID
	JobScheduleID uuid.UUID
	Status        string
	Input         []byte
	CreatedBy     pgtype.UUID
	TriggeredBy   *string
}

func (q *Queries) CreateExecution(ctx context.Context, arg CreateExecutionParams) (Execution, error) {
	return scanExecution(q.db.QueryRow(ctx, createExecution, arg.TenantID, arg.JobScheduleID, arg.Status,
		arg.Input, arg.CreatedBy, arg.TriggeredBy))
}

const updateExecutionStatus = `-- name: UpdateExecutionStatus :one
UPDATE executions SET
  status = $2,
  output = $3,
  error = $4,
  started_at = $5,
  completed_at = $6
WHERE id = $1
RETURNING ` + executionColumns + `
`

type UpdateExecutionStatusParams struct {
	ID          uuid.UUID
	Status      string
	Output      []byte
	Error       *string
	StartedAt   pgtype.Timestamptz
	CompletedAt pgtype.Timestamptz
}

func (q *Queries) UpdateExecutionStatus(ctx context.Context, arg UpdateExecutionStatusParams) (Execution, error) {
	return scanExecution(q.db.QueryRow(ctx, updateExecutionStatus, arg.ID, arg.Status, arg.Output,
		arg.Error, arg.StartedAt, arg.CompletedAt))
}

const updateExecutionTemporalIDs = `-- name: UpdateExecutionTemporalIDs :exec
UPDATE executions SET temporal_workflow_id = $2, temporal_run_id = $3 WHERE id = $1
`

func (q *Queries) UpdateExecutionTemporalIDs(ctx context.Context, id uuid.UUID, workflowID, runID string) error {
	_, err := q.db.Exec(ctx, updateExecutionTemporalIDs, id, workflowID, runID)
	return err
}
