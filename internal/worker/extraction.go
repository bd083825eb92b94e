package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/internal/extract"
	"github.com/orchestrix/tracksync/internal/status"
	"github.com/orchestrix/tracksync/pkg/credcipher"
)

// finishedInterval is how long a job schedule waits before it is eligible
// to run again once the whole execution_order cycle wraps back to it.
const finishedInterval = 5 * time.Minute

// failedBackoff is the retry window C12 schedules a FAILED job schedule
// for, distinct from the per-message retry/backoff the worker pool itself
// already applies to transient errors.
const failedBackoff = 2 * time.Minute

// devStatusPollInterval/devStatusPollAttempts bound how long the
// extraction worker waits for the issue transformer to set
// WorkItem.development=true before fanning out C7 (spec.md §4.7 gates
// dev-status on a column only the transform stage populates).
const devStatusPollInterval = 3 * time.Second
const devStatusPollAttempts = 10

// ExtractionHandler implements the worker.Handler for the extraction step
// (C11): given a trigger envelope whose Type names a JobSchedule's
// job_name, it loads the Integration, decrypts credentials, runs the
// matching extraction routine (C5/C6/C7), and on completion advances the
// JobSchedule cycle and signals C13's sync cycle workflow.
type ExtractionHandler struct {
	Schedules    port.JobScheduleRepository
	Integrations port.IntegrationRepository
	Tenants      port.TenantRepository
	WorkItems    port.WorkItemRepository
	Cipher       *credcipher.Cipher
	Extractor    *extract.Extractor
	Executor     port.SyncCycleExecutor
	// Status is optional; when nil, no status.Event is published.
	Status *status.Publisher
	// Metrics is optional; when set, rate-limit and terminal-failure
	// excursions are recorded as pipeline-health data points (C17/§4.15).
	Metrics port.MetricService
}

// NewExtractionHandler builds an ExtractionHandler. statusPublisher may be
// nil (status broadcast is best-effort and never gates pipeline progress).
// metrics may be nil, in which case no pipeline-health metrics are emitted.
func NewExtractionHandler(schedules port.JobScheduleRepository, integrations port.IntegrationRepository, tenants port.TenantRepository, workItems port.WorkItemRepository, cipher *credcipher.Cipher, extractor *extract.Extractor, executor port.SyncCycleExecutor, statusPublisher *status.Publisher, metrics port.MetricService) *ExtractionHandler {
	return &ExtractionHandler{
		Schedules: schedules, Integrations: integrations, Tenants: tenants,
		WorkItems: workItems, Cipher: cipher, Extractor: extractor, Executor: executor,
		Status: statusPublisher, Metrics: metrics,
	}
}

// recordMetric is a best-effort pipeline-health data point; a metrics
// outage must never affect JobSchedule state transitions already decided.
func (h *ExtractionHandler) recordMetric(ctx context.Context, tenantID uuid.UUID, name string, value float64, labels map[string]string) {
	if h.Metrics == nil {
		return
	}
	if err := h.Metrics.Ingest(ctx, port.IngestMetricInput{TenantID: tenantID, Name: name, Value: value, Labels: labels}); err != nil {
		slog.WarnContext(ctx, "pipeline metric ingest failed", "name", name, "error", err)
	}
}

func (h *ExtractionHandler) publishStatus(ctx context.Context, env *envelope.Envelope, statusName, detail string) {
	if h.Status == nil {
		return
	}
	if err := h.Status.Publish(ctx, status.Event{
		TenantID: env.TenantID, JobID: env.JobID, Status: statusName, Detail: detail, Timestamp: time.Now(),
	}); err != nil {
		slog.WarnContext(ctx, "status event publish failed", "error", err)
	}
}

// Handle implements Handler for p.Handle in worker.Pool.
func (h *ExtractionHandler) Handle(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	schedule, err := h.Schedules.FindByID(ctx, env.JobID)
	if err != nil {
		return fmt.Errorf("load job schedule %s: %w", env.JobID, err)
	}

	integration, err := h.Integrations.FindByID(ctx, env.IntegrationID)
	if err != nil {
		return fmt.Errorf("load integration %s: %w", env.IntegrationID, err)
	}

	creds, err := h.Cipher.Decrypt(integration.EncryptedCreds)
	if err != nil {
		return fmt.Errorf("decrypt integration credentials: %w", err)
	}

	run := extract.NewRun(env.TenantID, env.IntegrationID, env.JobID, tier, integration.Provider, integration.BaseURL, creds)
	run.Token = env.Token

	// runStart doubles as the sync window's end: everything updated before
	// this instant is covered by this run, and it becomes last_success_at
	// (truncated to the minute) when the run finishes.
	runStart := time.Now()
	startWindow := runStart
	if schedule.LastSuccessAt != nil {
		startWindow = *schedule.LastSuccessAt
	}
	run.OldLastSync = schedule.LastSuccessAt
	run.NewLastSync = &runStart

	runErr := h.dispatch(ctx, run, env.Type, integration.BaseSearchFilter, startWindow)

	var rl *port.RateLimitError
	if errors.As(runErr, &rl) {
		schedule.MarkRateLimited(resetOrDefault(rl))
		if updErr := h.Schedules.Update(ctx, schedule); updErr != nil {
			return fmt.Errorf("mark job schedule rate limited: %w", updErr)
		}
		h.recordMetric(ctx, env.TenantID, domain.MetricRateLimitHits, 1, map[string]string{"job_name": env.Type})
		h.publishStatus(ctx, env, string(domain.JobScheduleRateLimited), runErr.Error())
		h.signal(ctx, env.TenantID, env.IntegrationID, schedule.ID)
		return runErr
	}

	if runErr != nil {
		if env.RetryCount >= maxRetries {
			msg := runErr.Error()
			if len(msg) > 500 {
				msg = msg[:500]
			}
			schedule.MarkFailed(time.Now(), msg, failedBackoff)
			if updErr := h.Schedules.Update(ctx, schedule); updErr != nil {
				return fmt.Errorf("mark job schedule failed: %w", updErr)
			}
			h.recordMetric(ctx, env.TenantID, domain.MetricJobScheduleFailed, 1, map[string]string{"job_name": env.Type})
			h.publishStatus(ctx, env, string(domain.JobScheduleFailed), msg)
			h.signal(ctx, env.TenantID, env.IntegrationID, schedule.ID)
		}
		return runErr
	}

	schedule.MarkFinished(runStart.Truncate(time.Minute), finishedInterval)
	if err := h.Schedules.Update(ctx, schedule); err != nil {
		return fmt.Errorf("mark job schedule finished: %w", err)
	}
	if err := h.Schedules.AdvanceCycle(ctx, env.IntegrationID, schedule.ExecutionOrder); err != nil {
		return fmt.Errorf("advance job schedule cycle: %w", err)
	}
	h.publishStatus(ctx, env, string(domain.JobScheduleFinished), "")
	h.signal(ctx, env.TenantID, env.IntegrationID, schedule.ID)
	return nil
}

// dispatch routes job_name (the trigger envelope's Type) to the matching
// C5/C6/C7 routine.
func (h *ExtractionHandler) dispatch(ctx context.Context, run extract.Run, jobName, baseSearchFilter string, startWindow time.Time) error {
	switch port.ExecutionMode(jobName) {
	case port.ExecutionModeIssueTypes, port.ExecutionModeStatuses:
		return h.Extractor.ExtractReferenceData(ctx, run)
	case port.ExecutionModeCustomQuery:
		return h.Extractor.ExtractCustomFields(ctx, run)
	case port.ExecutionModeIssues, port.ExecutionModeAll:
		issues, err := h.Extractor.ExtractIssues(ctx, run, baseSearchFilter, startWindow, 0, true)
		if err != nil {
			return err
		}
		devIssues := h.waitForDevelopmentFlags(ctx, run.IntegrationID, issues)
		return h.Extractor.ExtractDevStatus(ctx, run, devIssues)
	default:
		return fmt.Errorf("unrecognized job name %q", jobName)
	}
}

// waitForDevelopmentFlags polls WorkItemRepository for the
// development=true subset of the extracted issues, bounded by
// devStatusPollAttempts, since that column is only populated once the
// issue transformer has processed each issue's transform message
// (spec.md §4.7, §4.9.3).
func (h *ExtractionHandler) waitForDevelopmentFlags(ctx context.Context, integrationID uuid.UUID, issues []extract.IssueRef) []extract.IssueRef {
	if len(issues) == 0 {
		return nil
	}
	external := make([]string, len(issues))
	byExternal := make(map[string]extract.IssueRef, len(issues))
	for i, issue := range issues {
		external[i] = issue.ExternalID
		byExternal[issue.ExternalID] = issue
	}

	for attempt := 0; attempt < devStatusPollAttempts; attempt++ {
		flagged, err := h.WorkItems.DevelopmentFlaggedExternalIDs(ctx, integrationID, external)
		if err == nil && len(flagged) > 0 {
			out := make([]extract.IssueRef, 0, len(flagged))
			for _, id := range flagged {
				out = append(out, byExternal[id])
			}
			return out
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(devStatusPollInterval):
		}
	}
	return nil
}

// signal notifies C13's sync cycle workflow that this job reached a
// terminal state, by the same workflow-id convention port.SyncCycleWorkflowID
// defines, so no temporal run id needs to be threaded through the envelope.
func (h *ExtractionHandler) signal(ctx context.Context, tenantID, integrationID, jobScheduleID uuid.UUID) {
	if h.Executor == nil {
		return
	}
	workflowID := port.SyncCycleWorkflowID(tenantID, integrationID)
	_ = h.Executor.SignalJobCompleted(ctx, workflowID, jobScheduleID)
}

func resetOrDefault(rl *port.RateLimitError) time.Time {
	if rl == nil || rl.ResetAt.IsZero() {
		return time.Now().Add(time.Minute)
	}
	return rl.ResetAt
}
