// Package workflow implements C13, the Sync Cycle Scheduler: the durable
// Temporal workflow driving one Integration's JobSchedule cycle (spec.md
// §4.13), one instance per (tenant, integration) keyed by
// port.SyncCycleWorkflowID.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/activity"
)

const jobCompletedSignal = "jobCompletedSignal"

// fallbackPollInterval bounds how long the workflow waits on
// jobCompletedSignal before re-polling Postgres directly -- Temporal
// signals can be missed across a worker restart (spec.md §4.13 step 4).
const fallbackPollInterval = 5 * time.Minute

// idlePollInterval is how long the workflow sleeps when no JobSchedule
// entry is currently eligible and none names a future next_run to wake at.
const idlePollInterval = time.Minute

// continueAsNewAfter bounds how many cycle iterations one workflow run
// processes before calling ContinueAsNew, keeping its history bounded.
const continueAsNewAfter = 200

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    3,
	},
}

// SyncCycleWorkflow drives tenantID/integrationID's JobSchedule cycle
// forever: pick the next runnable job, trigger its extraction, wait for
// completion, sleep until the following job is due, repeat.
func SyncCycleWorkflow(ctx workflow.Context, tenantID, integrationID uuid.UUID) error {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	for iteration := 0; iteration < continueAsNewAfter; iteration++ {
		var next activity.NextJobResult
		if err := workflow.ExecuteActivity(ctx, "PickNextJob", integrationID).Get(ctx, &next); err != nil {
			logger.Error("pick next job failed", "error", err)
			return err
		}

		if !next.Found {
			sleep := idlePollInterval
			if next.NextRun != nil {
				if until := workflow.Now(ctx); next.NextRun.After(until) {
					sleep = next.NextRun.Sub(until)
				}
			}
			workflow.Sleep(ctx, sleep)
			continue
		}

		logger.Info("dispatching job", "job_schedule_id", next.JobScheduleID, "job_name", next.JobName)

		publishInput := activity.PublishExtractionJobInput{
			JobScheduleID: next.JobScheduleID,
			TenantID:      tenantID,
			IntegrationID: integrationID,
			JobName:       next.JobName,
		}
		if err := workflow.ExecuteActivity(ctx, "PublishExtractionJob", publishInput).Get(ctx, nil); err != nil {
			logger.Error("publish extraction job failed", "error", err)
			return err
		}

		awaitJobCompletion(ctx, next.JobScheduleID)
	}

	return workflow.NewContinueAsNewError(ctx, SyncCycleWorkflow, tenantID, integrationID)
}

// awaitJobCompletion waits for the extraction worker pool's
// jobCompletedSignal, falling back to a direct Postgres poll if the signal
// does not arrive within fallbackPollInterval (spec.md §4.13 step 4).
func awaitJobCompletion(ctx workflow.Context, jobScheduleID uuid.UUID) {
	logger := workflow.GetLogger(ctx)
	signalCh := workflow.GetSignalChannel(ctx, jobCompletedSignal)

	for {
		var signaledID uuid.UUID
		signaled := false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(signalCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, &signaledID)
			signaled = true
		})
		timer := workflow.NewTimer(ctx, fallbackPollInterval)
		selector.AddFuture(timer, func(workflow.Future) {})
		selector.Select(ctx)

		if signaled {
			if signaledID == jobScheduleID {
				return
			}
			// A stale signal for a prior job; keep waiting for ours.
			continue
		}

		var status activity.JobStatusResult
		if err := workflow.ExecuteActivity(ctx, "PollJobStatus", jobScheduleID).Get(ctx, &status); err != nil {
			logger.Error("poll job status failed", "error", err)
			continue
		}
		if status.Done {
			return
		}
	}
}
