package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const jobScheduleColumns = `id, tenant_id, integration_id, job_name, status, execution_order,
  last_success_at, last_run_started_at, next_run, error_message, checkpoint, created_at, updated_at`

func scanJobSchedule(row interface{ Scan(dest ...any) error }) (JobSchedule, error) {
	var j JobSchedule
	err := row.Scan(&j.ID, &j.TenantID, &j.IntegrationID, &j.JobName, &j.Status, &j.ExecutionOrder,
		&j.LastSuccessAt, &j.LastRunStartedAt, &j.NextRun, &j.ErrorMessage, &j.Checkpoint, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

const getJobSchedule = `-- name: GetJobSchedule :one
SELECT ` + jobScheduleColumns + ` FROM job_schedules WHERE id = $1
`

func (q *Queries) GetJobSchedule(ctx context.Context, id uuid.UUID) (JobSchedule, error) {
	return scanJobSchedule(q.db.QueryRow(ctx, getJobSchedule, id))
}

const listJobSchedulesByIntegration = `-- name: ListJobSchedulesByIntegration :many
SELECT ` + jobScheduleColumns + ` FROM job_schedules WHERE integration_id = $1 ORDER BY execution_order ASC
`

func (q *Queries) ListJobSchedulesByIntegration(ctx context.Context, integrationID uuid.UUID) ([]JobSchedule, error) {
	rows, err := q.db.Query(ctx, listJobSchedulesByIntegration, integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []JobSchedule
	for rows.Next() {
		j, err := scanJobSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	return items, rows.Err()
}

const listJobSchedulesByTenant = `-- name: ListJobSchedulesByTenant :many
SELECT ` + jobScheduleColumns + ` FROM job_schedules WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListJobSchedulesByTenantParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListJobSchedulesByTenant(ctx context.Context, arg ListJobSchedulesByTenantParams) ([]JobSchedule, error) {
	rows, err := q.db.Query(ctx, listJobSchedulesByTenant, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []JobSchedule
	for rows.Next() {
		j, err := scanJobSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	return items, rows.Err()
}

const countJobSchedules = `-- name: CountJobSchedules :one
SELECT count(*) FROM job_schedules WHERE tenant_id = $1
`

func (q *Queries) CountJobSchedules(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countJobSchedules, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// nextRunnableJobSchedule implements the cycling-selection query: first
// READY/PENDING entry ordered by execution_order whose next_run has
// elapsed, skipping PAUSED.
const nextRunnableJobSchedule = `-- name: NextRunnableJobSchedule :one
SELECT ` + jobScheduleColumns + ` FROM job_schedules
WHERE integration_id = $1
  AND status IN ('READY', 'PENDING')
  AND (next_run IS NULL OR next_run <= $2)
ORDER BY execution_order ASC
LIMIT 1
`

func (q *Queries) NextRunnableJobSchedule(ctx context.Context, integrationID uuid.UUID, now time.Time) (JobSchedule, error) {
	return scanJobSchedule(q.db.QueryRow(ctx, nextRunnableJobSchedule, integrationID, now))
}

const createJobSchedule = `-- name: CreateJobSchedule :one
INSERT INTO job_schedules (tenant_id, integration_id, job_name, status, execution_order)
VALUES ($1, $2, $3, 'READY', $4)
RETURNING ` + jobScheduleColumns + `
`

type CreateJobScheduleParams struct {
	TenantID       uuid.UUID
	IntegrationID  uuid.UUID
	JobName        string
	ExecutionOrder int32
}

func (q *Queries) CreateJobSchedule(ctx context.Context, arg CreateJobScheduleParams) (JobSchedule, error) {
	return scanJobSchedule(q.db.QueryRow(ctx, createJobSchedule, arg.TenantID, arg.IntegrationID, arg.JobName, arg.ExecutionOrder))
}

const updateJobSchedule = `-- name: UpdateJobSchedule :one
UPDATE job_schedules SET
  status = $2,
  execution_order = $3,
  last_success_at = $4,
  last_run_started_at = $5,
  next_run = $6,
  error_message = $7,
  checkpoint = $8,
  updated_at = now()
WHERE id = $1
RETURNING ` + jobScheduleColumns + `
`

type UpdateJobScheduleParams struct {
	ID               uuid.UUID
	Status           string
	ExecutionOrder   int32
	LastSuccessAt    pgtype.Timestamptz
	LastRunStartedAt pgtype.Timestamptz
	NextRun          pgtype.Timestamptz
	ErrorMessage     *string
	Checkpoint       []byte
}

func (q *Queries) UpdateJobSchedule(ctx context.Context, arg UpdateJobScheduleParams) (JobSchedule, error) {
	return scanJobSchedule(q.db.QueryRow(ctx, updateJobSchedule, arg.ID, arg.Status, arg.ExecutionOrder,
		arg.LastSuccessAt, arg.LastRunStartedAt, arg.NextRun, arg.ErrorMessage, arg.Checkpoint))
}

// advanceJobScheduleCycle marks the next non-PAUSED entry after
// completedOrder PENDING, implementing the cycle's hand-off.
const advanceJobScheduleCycle = `-- name: AdvanceJobScheduleCycle :exec
UPDATE job_schedules SET status = 'PENDING', updated_at = now()
WHERE id = (
  SELECT id FROM job_schedules
  WHERE integration_id = $1 AND execution_order > $2 AND status != 'PAUSED'
  ORDER BY execution_order ASC LIMIT 1
)
`

func (q *Queries) AdvanceJobScheduleCycle(ctx context.Context, integrationID uuid.UUID, completedOrder int32) error {
	_, err := q.db.Exec(ctx, advanceJobScheduleCycle, integrationID, completedOrder)
	return err
}
