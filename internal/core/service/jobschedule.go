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

// JobScheduleService implements port.JobScheduleService: CRUD over
// JobSchedule rows plus the run_sync entrypoint from spec.md §6.
type JobScheduleService struct {
	scheduleRepo  port.JobScheduleRepository
	executionRepo port.ExecutionRepository
	executor      port.SyncCycleExecutor
	auditService  port.AuditService
	tenantSetter  port.TenantContextSetter
}

// NewJobScheduleService creates a new job schedule service.
func NewJobScheduleService(
	scheduleRepo port.JobScheduleRepository,
	executionRepo port.ExecutionRepository,
	executor port.SyncCycleExecutor,
	auditService port.AuditService,
	tenantSetter port.TenantContextSetter,
) *JobScheduleService {
	return &JobScheduleService{
		scheduleRepo:  scheduleRepo,
		executionRepo: executionRepo,
		executor:      executor,
		auditService:  auditService,
		tenantSetter:  tenantSetter,
	}
}

// List returns paginated job schedules for a tenant.
func (s *JobScheduleService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*port.JobScheduleListResult, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, tenantID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit

	schedules, err := s.scheduleRepo.FindByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.scheduleRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &port.JobScheduleListResult{
		JobSchedules: schedules,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}, nil
}

// GetByID returns a job schedule by ID.
func (s *JobScheduleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.JobSchedule, error) {
	return s.scheduleRepo.FindByID(ctx, id)
}

// Create creates a new job schedule in the READY state.
func (s *JobScheduleService) Create(ctx context.Context, input port.CreateJobScheduleInput) (*domain.JobSchedule, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, input.TenantID); err != nil {
		return nil, err
	}

	schedule := &domain.JobSchedule{
		TenantID:       input.TenantID,
		IntegrationID:  input.IntegrationID,
		JobName:        input.JobName,
		Status:         domain.JobScheduleReady,
		ExecutionOrder: input.ExecutionOrder,
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Update edits the execution order or next-run deadline of a schedule.
func (s *JobScheduleService) Update(ctx context.Context, id uuid.UUID, input port.UpdateJobScheduleInput) (*domain.JobSchedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ExecutionOrder != nil {
		schedule.ExecutionOrder = *input.ExecutionOrder
	}
	if input.NextRun != nil {
		schedule.NextRun = input.NextRun
	}

	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Pause takes a job schedule out of the cycling rotation.
func (s *JobScheduleService) Pause(ctx context.Context, id uuid.UUID) error {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	schedule.Pause()

	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return err
	}

	s.logAudit(ctx, schedule.TenantID, nil, domain.AuditEventJobSchedulePaused, schedule.ID)
	return nil
}

// Resume returns a paused job schedule to READY, eligible for immediate pickup.
func (s *JobScheduleService) Resume(ctx context.Context, id uuid.UUID) error {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	schedule.Resume(time.Now())

	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return err
	}

	s.logAudit(ctx, schedule.TenantID, nil, domain.AuditEventJobScheduleResumed, schedule.ID)
	return nil
}

// Delete takes a job schedule out of rotation by pausing it. JobSchedule
// rows have no soft-delete flag of their own (they are scoped entirely by
// the parent Integration's) and the row is not removed: it stays PAUSED.
func (s *JobScheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	schedule.Pause()
	return s.scheduleRepo.Update(ctx, schedule)
}

// RunSync is the run_sync entrypoint from spec.md §6: marks the JobSchedule
// RUNNING synchronously (409 if already running via ErrJobScheduleAlreadyRunning),
// creates a pending Execution row, then starts the Temporal sync cycle
// workflow, returning the Execution.
func (s *JobScheduleService) RunSync(ctx context.Context, id uuid.UUID, userID string, input port.RunSyncInput) (*domain.Execution, error) {
	if err := validation.Validate(func(v *validation.Validator) {
		v.Enum("execution_mode", string(input.ExecutionMode), []string{
			string(port.ExecutionModeIssueTypes), string(port.ExecutionModeStatuses),
			string(port.ExecutionModeIssues), string(port.ExecutionModeCustomQuery), string(port.ExecutionModeAll),
		})
		v.If(input.ExecutionMode == port.ExecutionModeCustomQuery, func(v *validation.Validator) {
			v.Custom("custom_query", input.CustomQuery != nil && *input.CustomQuery != "", "custom_query is required for custom_query mode")
		})
	}); err != nil {
		return nil, err
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !schedule.CanRun(now) {
		return nil, domain.ErrJobScheduleAlreadyRunning
	}

	schedule.MarkRunning(now)
	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return nil, err
	}

	inputJSON, _ := json.Marshal(input)

	execution := &domain.Execution{
		TenantID:      schedule.TenantID,
		JobScheduleID: schedule.ID,
		Status:        domain.ExecutionStatusPending,
		Input:         inputJSON,
		TriggeredBy:   &userID,
	}
	if err := s.executionRepo.Save(ctx, execution); err != nil {
		return nil, err
	}

	result, err := s.executor.StartSyncCycle(ctx, schedule.TenantID, schedule.IntegrationID)
	if err != nil {
		execution.MarkAsFailed(time.Now(), err.Error())
		_ = s.executionRepo.Update(ctx, execution)
		return nil, err
	}

	if err := s.executionRepo.UpdateTemporalIDs(ctx, execution.ID, result.TemporalWorkflowID, result.TemporalRunID); err != nil {
		return nil, err
	}
	execution.TemporalWorkflowID = &result.TemporalWorkflowID
	execution.TemporalRunID = &result.TemporalRunID
	execution.MarkAsRunning(time.Now())
	if err := s.executionRepo.Update(ctx, execution); err != nil {
		return nil, err
	}

	s.logAudit(ctx, schedule.TenantID, &userID, domain.AuditEventJobScheduleRun, schedule.ID)

	return execution, nil
}

// ListExecutions lists paginated executions for a job schedule.
func (s *JobScheduleService) ListExecutions(ctx context.Context, jobScheduleID uuid.UUID, page, limit int) (*port.ExecutionListResult, error) {
	offset := (page - 1) * limit

	executions, err := s.executionRepo.FindByJobSchedule(ctx, jobScheduleID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &port.ExecutionListResult{
		Executions: executions,
		Total:      int64(len(executions)),
		Page:       page,
		Limit:      limit,
	}, nil
}

func (s *JobScheduleService) logAudit(ctx context.Context, tenantID uuid.UUID, userID *string, eventType string, resourceID uuid.UUID) {
	if s.auditService == nil {
		return
	}

	var uid *uuid.UUID
	if userID != nil {
		if parsed, err := uuid.Parse(*userID); err == nil {
			uid = &parsed
		}
	}

	log := domain.NewAuditLog(tenantID, uid, eventType, domain.ResourceTypeJobSchedule, &resourceID, domain.ActionUpdate)
	s.auditService.Log(ctx, log)
}
