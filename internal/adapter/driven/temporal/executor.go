package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/orchestrix/tracksync/internal/core/port"
	pkgtemporal "github.com/orchestrix/tracksync/pkg/temporal"
)

const jobCompletedSignal = "jobCompletedSignal"

// SyncCycleExecutor implements port.SyncCycleExecutor by starting and
// signalling the SyncCycleWorkflow registered by cmd/worker.
type SyncCycleExecutor struct {
	client    client.Client
	taskQueue string
}

// NewSyncCycleExecutor creates a new sync cycle executor.
func NewSyncCycleExecutor(c client.Client) *SyncCycleExecutor {
	return &SyncCycleExecutor{
		client:    c,
		taskQueue: pkgtemporal.GetTaskQueue(),
	}
}

// StartSyncCycle starts the SyncCycleWorkflow for one tenant/integration
// pair under its per-integration workflow ID. It sends no signal.
func (e *SyncCycleExecutor) StartSyncCycle(ctx context.Context, tenantID, integrationID uuid.UUID) (*port.ExecuteResult, error) {
	options := client.StartWorkflowOptions{
		ID:        port.SyncCycleWorkflowID(tenantID, integrationID),
		TaskQueue: e.taskQueue,
	}

	run, err := e.client.ExecuteWorkflow(ctx, options, "SyncCycleWorkflow", tenantID, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to start sync cycle workflow: %w", err)
	}

	return &port.ExecuteResult{
		TemporalWorkflowID: run.GetID(),
		TemporalRunID:      run.GetRunID(),
	}, nil
}

// SignalJobCompleted notifies a running SyncCycleWorkflow that the extraction
// worker pool moved jobScheduleID to a terminal state.
func (e *SyncCycleExecutor) SignalJobCompleted(ctx context.Context, temporalWorkflowID string, jobScheduleID uuid.UUID) error {
	return e.client.SignalWorkflow(ctx, temporalWorkflowID, "", jobCompletedSignal, jobScheduleID)
}

// Cancel requests cancellation of a running sync cycle workflow.
func (e *SyncCycleExecutor) Cancel(ctx context.Context, temporalWorkflowID string) error {
	return e.client.CancelWorkflow(ctx, temporalWorkflowID, "")
}

// GetStatus returns the current Temporal execution status string.
func (e *SyncCycleExecutor) GetStatus(ctx context.Context, temporalWorkflowID string) (string, error) {
	resp, err := e.client.DescribeWorkflowExecution(ctx, temporalWorkflowID, "")
	if err != nil {
		return "", fmt.Errorf("failed to describe workflow: %w", err)
	}
	return resp.WorkflowExecutionInfo.Status.String(), nil
}
