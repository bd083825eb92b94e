package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// ChangelogRepository implements port.ChangelogRepository: insert-only,
// deduped by (work_item_id, external_id) per spec.md §3.
type ChangelogRepository struct {
	pool *pgxpool.Pool
}

// NewChangelogRepository creates a new changelog repository.
func NewChangelogRepository(pool *pgxpool.Pool) *ChangelogRepository {
	return &ChangelogRepository{pool: pool}
}

// ExistingExternalIDs returns which of externalIDs already have a row for
// workItemID, so the transformer can skip rows already inserted (spec.md
// §4.9.3: "Skip rows where (work_item_id, external_id) already exists").
func (r *ChangelogRepository) ExistingExternalIDs(ctx context.Context, workItemID uuid.UUID, externalIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT external_id FROM changelogs WHERE work_item_id = $1 AND external_id = ANY($2)`,
		workItemID, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var extID string
		if err := rows.Scan(&extID); err != nil {
			return nil, err
		}
		out[extID] = true
	}
	return out, rows.Err()
}

var changelogColumns = []string{
	"id", "tenant_id", "integration_id", "work_item_id", "external_id",
	"from_status_id", "to_status_id", "transition_start_date", "transition_change_date",
	"time_in_status_seconds", "changed_by", "active",
}

// BulkInsert inserts new Changelog rows.
func (r *ChangelogRepository) BulkInsert(ctx context.Context, rows []*domain.Changelog) error {
	vals := make([][]any, len(rows))
	for i, c := range rows {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		vals[i] = []any{
			c.ID, c.TenantID, c.IntegrationID, c.WorkItemID, c.ExternalID,
			c.FromStatusID, c.ToStatusID, c.TransitionStartDate, c.TransitionChangeDate,
			c.TimeInStatusSeconds, c.ChangedBy, c.Active,
		}
	}
	return bulkInsert(ctx, r.pool, "changelogs", changelogColumns, vals, 0)
}

// ChainForWorkItem returns a work item's full active changelog chain in
// chronological order (ascending transition_change_date), for metric
// recomputation.
func (r *ChangelogRepository) ChainForWorkItem(ctx context.Context, workItemID uuid.UUID) ([]domain.Changelog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, integration_id, work_item_id, external_id,
		       from_status_id, to_status_id, transition_start_date, transition_change_date,
		       time_in_status_seconds, changed_by, active
		  FROM changelogs WHERE work_item_id = $1 AND active = true
		 ORDER BY transition_change_date ASC`, workItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Changelog
	for rows.Next() {
		var c domain.Changelog
		if err := rows.Scan(&c.ID, &c.TenantID, &c.IntegrationID, &c.WorkItemID, &c.ExternalID,
			&c.FromStatusID, &c.ToStatusID, &c.TransitionStartDate, &c.TransitionChangeDate,
			&c.TimeInStatusSeconds, &c.ChangedBy, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
