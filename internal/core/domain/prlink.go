package domain

import "github.com/google/uuid"

// WorkItemPrLink cross-references a WorkItem to a source-control pull
// request surfaced by the provider's dev-status API. Unique on
// (work_item_id, external_repo_id, pull_request_number).
type WorkItemPrLink struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	IntegrationID     uuid.UUID
	WorkItemID        uuid.UUID
	ExternalRepoID    string
	RepoFullName      string
	PullRequestNumber int
	BranchName        *string
	CommitSHA         *string
	PrStatus          string
	Active            bool
}
