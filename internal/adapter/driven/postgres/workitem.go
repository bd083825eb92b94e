package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// WorkItemRepository implements port.WorkItemRepository: the bulk
// insert/update path for normalized issues plus their derived workflow
// metric columns (spec.md §4.9.3, §4.10).
type WorkItemRepository struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepository creates a new work item repository.
func NewWorkItemRepository(pool *pgxpool.Pool) *WorkItemRepository {
	return &WorkItemRepository{pool: pool}
}

var workItemColumns = []string{
	"id", "tenant_id", "integration_id", "external_id", "key", "summary", "description",
	"project_id", "wit_id", "status_id", "priority", "resolution", "assignee", "team", "labels",
	"story_points", "development", "parent_external_id", "created", "updated",
	"work_first_committed_at", "work_first_started_at", "work_last_started_at",
	"work_first_completed_at", "work_last_completed_at",
	"total_work_starts", "total_completions", "total_backlog_returns",
	"total_work_time_seconds", "total_review_time_seconds",
	"total_cycle_time_seconds", "total_lead_time_seconds",
	"workflow_complexity_score", "rework_indicator", "direct_completion",
	"custom_field_01", "custom_field_02", "custom_field_03", "custom_field_04", "custom_field_05",
	"custom_field_06", "custom_field_07", "custom_field_08", "custom_field_09", "custom_field_10",
	"custom_field_11", "custom_field_12", "custom_field_13", "custom_field_14", "custom_field_15",
	"custom_field_16", "custom_field_17", "custom_field_18", "custom_field_19", "custom_field_20",
	"active",
}

func workItemValues(w *domain.WorkItem) []any {
	vals := []any{
		w.ID, w.TenantID, w.IntegrationID, w.ExternalID, w.Key, w.Summary, w.Description,
		w.ProjectID, w.WitID, w.StatusID, w.Priority, w.Resolution, w.Assignee, w.Team,
		strings.Join(w.Labels, ","),
		w.StoryPoints, w.Development, w.ParentExternalID, w.Created, w.Updated,
		w.WorkFirstCommittedAt, w.WorkFirstStartedAt, w.WorkLastStartedAt,
		w.WorkFirstCompletedAt, w.WorkLastCompletedAt,
		w.TotalWorkStarts, w.TotalCompletions, w.TotalBacklogReturns,
		w.TotalWorkTimeSeconds, w.TotalReviewTimeSeconds,
		w.TotalCycleTimeSeconds, w.TotalLeadTimeSeconds,
		w.WorkflowComplexityScore, w.ReworkIndicator, w.DirectCompletion,
	}
	for _, cf := range w.CustomFields {
		vals = append(vals, cf)
	}
	vals = append(vals, w.Active)
	return vals
}

// FindByExternalIDs resolves a batch of issues already known to this
// integration, keyed by external_id, so the issue transformer can partition
// the incoming page into inserts vs. updates (spec.md §4.9.3).
func (r *WorkItemRepository) FindByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]*domain.WorkItem, error) {
	out := make(map[string]*domain.WorkItem, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, external_id FROM work_items WHERE integration_id = $1 AND external_id = ANY($2)`,
		integrationID, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		w := &domain.WorkItem{IntegrationID: integrationID}
		if err := rows.Scan(&w.ID, &w.ExternalID); err != nil {
			return nil, err
		}
		out[w.ExternalID] = w
	}
	return out, rows.Err()
}

// DevelopmentFlaggedExternalIDs narrows externalIDs down to the subset
// already transformed with development=true (spec.md §4.7's gate for the
// Dev-Status Extractor).
func (r *WorkItemRepository) DevelopmentFlaggedExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) ([]string, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT external_id FROM work_items WHERE integration_id = $1 AND external_id = ANY($2) AND development = true`,
		integrationID, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// BulkInsert inserts new WorkItem rows.
func (r *WorkItemRepository) BulkInsert(ctx context.Context, items []*domain.WorkItem) error {
	rows := make([][]any, len(items))
	for i, w := range items {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		rows[i] = workItemValues(w)
	}
	return bulkInsert(ctx, r.pool, "work_items", workItemColumns, rows, 0)
}

// BulkUpdate updates existing WorkItem rows in place by primary key,
// including the derived metric columns recomputed by the changelog step.
func (r *WorkItemRepository) BulkUpdate(ctx context.Context, items []*domain.WorkItem) error {
	cols := workItemColumns[1:] // everything but "id", which is the PK arg
	rows := make([]updateRow, len(items))
	for i, w := range items {
		rows[i] = updateRow{PK: w.ID, Values: workItemValues(w)[1:]}
	}
	return bulkUpdate(ctx, r.pool, "work_items", "id", cols, rows, 0)
}
