// Package activity implements the Temporal activities backing C13, the
// Sync Cycle Scheduler: everything the SyncCycleWorkflow needs that
// touches Postgres or the broker, since workflow code itself must stay
// deterministic and side-effect free.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// Activities holds the driven ports the sync-cycle activities need.
type Activities struct {
	Schedules    port.JobScheduleRepository
	Integrations port.IntegrationRepository
	Tenants      port.TenantRepository
	Publisher    port.QueuePublisher
	// Metrics is optional; when set, PollJobStatus reports how long a
	// RUNNING schedule has stayed that way (C17/§4.15's stuck_running_seconds).
	Metrics port.MetricService
}

// NewActivities builds an Activities instance. metrics may be nil, in which
// case no stuck_running_seconds data points are emitted.
func NewActivities(schedules port.JobScheduleRepository, integrations port.IntegrationRepository, tenants port.TenantRepository, publisher port.QueuePublisher, metrics port.MetricService) *Activities {
	return &Activities{Schedules: schedules, Integrations: integrations, Tenants: tenants, Publisher: publisher, Metrics: metrics}
}

// NextJobResult reports the JobSchedule entry the workflow should drive
// next, or the deadline to sleep until if none is currently eligible.
type NextJobResult struct {
	Found          bool
	JobScheduleID  uuid.UUID
	JobName        string
	ExecutionOrder int
	NextRun        *time.Time
}

// PickNextJob implements C13 step 1-2: loads the integration's JobSchedule
// rows and returns the first READY/PENDING entry (ordered by
// execution_order, PAUSED skipped) whose next_run has elapsed.
func (a *Activities) PickNextJob(ctx context.Context, integrationID uuid.UUID) (*NextJobResult, error) {
	schedule, err := a.Schedules.NextRunnable(ctx, integrationID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("pick next job: %w", err)
	}
	if schedule == nil {
		schedules, err := a.Schedules.FindByIntegration(ctx, integrationID)
		if err != nil {
			return nil, fmt.Errorf("list schedules for fallback sleep deadline: %w", err)
		}
		var soonest *time.Time
		for _, s := range schedules {
			if s.Status == domain.JobSchedulePaused || s.NextRun == nil {
				continue
			}
			if soonest == nil || s.NextRun.Before(*soonest) {
				soonest = s.NextRun
			}
		}
		return &NextJobResult{Found: false, NextRun: soonest}, nil
	}
	return &NextJobResult{
		Found:          true,
		JobScheduleID:  schedule.ID,
		JobName:        schedule.JobName,
		ExecutionOrder: schedule.ExecutionOrder,
	}, nil
}

// PublishExtractionJobInput is the trigger envelope's source data.
type PublishExtractionJobInput struct {
	JobScheduleID uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	JobName       string
}

// PublishExtractionJob implements C13 step 3: marks the schedule RUNNING
// and publishes a trigger envelope onto extraction_queue_{tier} carrying
// type=job_name (spec.md §4.1's envelope with job_id set to the
// JobSchedule's own id, so the extraction worker that picks it up and the
// signal it sends back both key off the same identifier).
func (a *Activities) PublishExtractionJob(ctx context.Context, input PublishExtractionJobInput) error {
	schedule, err := a.Schedules.FindByID(ctx, input.JobScheduleID)
	if err != nil {
		return fmt.Errorf("load job schedule: %w", err)
	}
	schedule.MarkRunning(time.Now())
	if err := a.Schedules.Update(ctx, schedule); err != nil {
		return fmt.Errorf("mark job schedule running: %w", err)
	}

	tenant, err := a.Tenants.FindByID(ctx, input.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	integration, err := a.Integrations.FindByID(ctx, input.IntegrationID)
	if err != nil {
		return fmt.Errorf("load integration: %w", err)
	}

	env := &envelope.Envelope{
		TenantID:      input.TenantID,
		IntegrationID: input.IntegrationID,
		JobID:         input.JobScheduleID,
		Token:         uuid.New().String(),
		Type:          input.JobName,
		Provider:      integration.Provider,
		FirstItem:     true,
		LastItem:      true,
	}
	return a.Publisher.PublishExtractionJob(ctx, tenant.Tier, env)
}

// JobStatusResult is the defensive-fallback poll result: the workflow uses
// this when the jobCompletedSignal is missed across a worker restart.
type JobStatusResult struct {
	Status  string
	Done    bool
	NextRun *time.Time
}

// PollJobStatus implements C13 step 4's fallback: re-reads the JobSchedule
// directly from Postgres instead of waiting on a signal that may never
// arrive.
func (a *Activities) PollJobStatus(ctx context.Context, jobScheduleID uuid.UUID) (*JobStatusResult, error) {
	schedule, err := a.Schedules.FindByID(ctx, jobScheduleID)
	if err != nil {
		return nil, fmt.Errorf("poll job schedule: %w", err)
	}
	done := schedule.Status != domain.JobScheduleRunning
	if !done && schedule.LastRunStartedAt != nil {
		a.recordStuckMetric(ctx, schedule)
	}
	return &JobStatusResult{Status: string(schedule.Status), Done: done, NextRun: schedule.NextRun}, nil
}

// recordStuckMetric reports how long a still-RUNNING schedule has been
// running every time C13's fallback poll observes it, so C15's alert
// rules can page on a job that never signaled completion.
func (a *Activities) recordStuckMetric(ctx context.Context, schedule *domain.JobSchedule) {
	if a.Metrics == nil {
		return
	}
	elapsed := time.Since(*schedule.LastRunStartedAt).Seconds()
	err := a.Metrics.Ingest(ctx, port.IngestMetricInput{
		TenantID: schedule.TenantID,
		Name:     domain.MetricStuckRunning,
		Value:    elapsed,
		Labels:   map[string]string{"job_name": schedule.JobName},
	})
	if err != nil {
		slog.WarnContext(ctx, "stuck running metric ingest failed", "error", err)
	}
}
