package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// PrLinkRepository implements port.PrLinkRepository: insert-with-on-conflict
// dev-status -> pull-request cross references, unique on
// (work_item_id, external_repo_id, pull_request_number) per spec.md §3.
type PrLinkRepository struct {
	pool *pgxpool.Pool
}

// NewPrLinkRepository creates a new PR link repository.
func NewPrLinkRepository(pool *pgxpool.Pool) *PrLinkRepository {
	return &PrLinkRepository{pool: pool}
}

// ExistingKeys returns the set of "{external_repo_id}/{pull_request_number}"
// keys already linked to workItemID, so the transformer only inserts new
// rows (spec.md §4.9.4: "existing rows are skipped").
func (r *PrLinkRepository) ExistingKeys(ctx context.Context, workItemID uuid.UUID) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT external_repo_id, pull_request_number FROM work_item_pr_links WHERE work_item_id = $1`,
		workItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var repoID string
		var prNumber int
		if err := rows.Scan(&repoID, &prNumber); err != nil {
			return nil, err
		}
		out[prLinkKey(repoID, prNumber)] = true
	}
	return out, rows.Err()
}

func prLinkKey(externalRepoID string, prNumber int) string {
	return fmt.Sprintf("%s/%d", externalRepoID, prNumber)
}

var prLinkColumns = []string{
	"id", "tenant_id", "integration_id", "work_item_id", "external_repo_id",
	"repo_full_name", "pull_request_number", "branch_name", "commit_sha", "pr_status", "active",
}

// BulkInsert inserts new WorkItemPrLink rows, ON CONFLICT DO NOTHING as a
// last line of defense against a race between ExistingKeys and the insert.
func (r *PrLinkRepository) BulkInsert(ctx context.Context, links []*domain.WorkItemPrLink) error {
	rows := make([][]any, len(links))
	for i, l := range links {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		rows[i] = []any{
			l.ID, l.TenantID, l.IntegrationID, l.WorkItemID, l.ExternalRepoID,
			l.RepoFullName, l.PullRequestNumber, l.BranchName, l.CommitSHA, l.PrStatus, l.Active,
		}
	}
	return bulkInsertOnConflictDoNothing(ctx, r.pool, "work_item_pr_links", prLinkColumns, rows,
		[]string{"work_item_id", "external_repo_id", "pull_request_number"}, 0)
}
