package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/db"
)

// JobScheduleRepository implements port.JobScheduleRepository
type JobScheduleRepository struct {
	pool    *pgxpool.Pool
	queries *db.Queries
}

// NewJobScheduleRepository creates a new job schedule repository
func NewJobScheduleRepository(pool *pgxpool.Pool) *JobScheduleRepository {
	return &JobScheduleRepository{
		pool:    pool,
		queries: db.New(pool),
	}
}

// FindByID finds a job schedule by ID
func (r *JobScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.JobSchedule, error) {
	row, err := r.queries.GetJobSchedule(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobScheduleNotFound
		}
		return nil, err
	}
	return r.toDomain(row), nil
}

// FindByIntegration finds all job schedules for an integration, ordered by
// execution_order.
func (r *JobScheduleRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]*domain.JobSchedule, error) {
	rows, err := r.queries.ListJobSchedulesByIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	schedules := make([]*domain.JobSchedule, len(rows))
	for i, row := range rows {
		schedules[i] = r.toDomain(row)
	}
	return schedules, nil
}

// FindByTenant finds job schedules by tenant with pagination
func (r *JobScheduleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.JobSchedule, error) {
	rows, err := r.queries.ListJobSchedulesByTenant(ctx, db.ListJobSchedulesByTenantParams{
		TenantID: tenantID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		return nil, err
	}
	schedules := make([]*domain.JobSchedule, len(rows))
	for i, row := range rows {
		schedules[i] = r.toDomain(row)
	}
	return schedules, nil
}

// CountByTenant counts job schedules for a tenant
func (r *JobScheduleRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.queries.CountJobSchedules(ctx, tenantID)
}

// NextRunnable returns the first READY/PENDING schedule whose next_run has
// elapsed, or nil if none is eligible.
func (r *JobScheduleRepository) NextRunnable(ctx context.Context, integrationID uuid.UUID, now time.Time) (*domain.JobSchedule, error) {
	row, err := r.queries.NextRunnableJobSchedule(ctx, integrationID, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.toDomain(row), nil
}

// Save inserts a new job schedule.
func (r *JobScheduleRepository) Save(ctx context.Context, js *domain.JobSchedule) error {
	row, err := r.queries.CreateJobSchedule(ctx, db.CreateJobScheduleParams{
		TenantID:       js.TenantID,
		IntegrationID:  js.IntegrationID,
		JobName:        js.JobName,
		ExecutionOrder: int32(js.ExecutionOrder),
	})
	if err != nil {
		return err
	}
	*js = *r.toDomain(row)
	return nil
}

// Update persists the full mutable state of a job schedule.
func (r *JobScheduleRepository) Update(ctx context.Context, js *domain.JobSchedule) error {
	checkpoint, err := json.Marshal(js.Checkpoint)
	if err != nil {
		return err
	}

	var errMsg *string
	if js.ErrorMessage != "" {
		errMsg = &js.ErrorMessage
	}

	row, err := r.queries.UpdateJobSchedule(ctx, db.UpdateJobScheduleParams{
		ID:               js.ID,
		Status:           string(js.Status),
		ExecutionOrder:   int32(js.ExecutionOrder),
		LastSuccessAt:    timeToPgtype(js.LastSuccessAt),
		LastRunStartedAt: timeToPgtype(js.LastRunStartedAt),
		NextRun:          timeToPgtype(js.NextRun),
		ErrorMessage:     errMsg,
		Checkpoint:       checkpoint,
	})
	if err != nil {
		return err
	}
	*js = *r.toDomain(row)
	return nil
}

// AdvanceCycle marks the next non-PAUSED entry after completedOrder PENDING.
func (r *JobScheduleRepository) AdvanceCycle(ctx context.Context, integrationID uuid.UUID, completedOrder int) error {
	return r.queries.AdvanceJobScheduleCycle(ctx, integrationID, int32(completedOrder))
}

func (r *JobScheduleRepository) toDomain(row db.JobSchedule) *domain.JobSchedule {
	var lastSuccessAt, lastRunStartedAt, nextRun *time.Time
	if row.LastSuccessAt.Valid {
		t := row.LastSuccessAt.Time
		lastSuccessAt = &t
	}
	if row.LastRunStartedAt.Valid {
		t := row.LastRunStartedAt.Time
		lastRunStartedAt = &t
	}
	if row.NextRun.Valid {
		t := row.NextRun.Time
		nextRun = &t
	}

	errMsg := ""
	if row.ErrorMessage != nil {
		errMsg = *row.ErrorMessage
	}

	var checkpoint map[string]any
	if len(row.Checkpoint) > 0 {
		_ = json.Unmarshal(row.Checkpoint, &checkpoint)
	}

	return &domain.JobSchedule{
		ID:               row.ID,
		TenantID:         row.TenantID,
		IntegrationID:    row.IntegrationID,
		JobName:          row.JobName,
		Status:           domain.JobScheduleStatus(row.Status),
		ExecutionOrder:   int(row.ExecutionOrder),
		LastSuccessAt:    lastSuccessAt,
		LastRunStartedAt: lastRunStartedAt,
		NextRun:          nextRun,
		ErrorMessage:     errMsg,
		Checkpoint:       checkpoint,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
