package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkItem is one provider-side issue, normalized into the relational model
// with its derived workflow-metric columns (see internal/workflowmetrics).
type WorkItem struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	IntegrationID    uuid.UUID
	ExternalID       string
	Key              string
	Summary          string
	Description      string
	ProjectID        *uuid.UUID
	WitID            *uuid.UUID
	StatusID         *uuid.UUID
	Priority         string
	Resolution       string
	Assignee         string
	Team             string
	Labels           []string
	StoryPoints      *float64
	Development      bool
	ParentExternalID *string
	Created          time.Time
	Updated          time.Time

	// Derived metric columns, recomputed from the changelog chain on every
	// transform of this work item (see internal/workflowmetrics).
	WorkFirstCommittedAt    *time.Time
	WorkFirstStartedAt      *time.Time
	WorkLastStartedAt       *time.Time
	WorkFirstCompletedAt    *time.Time
	WorkLastCompletedAt     *time.Time
	TotalWorkStarts         int
	TotalCompletions        int
	TotalBacklogReturns     int
	TotalWorkTimeSeconds    float64
	TotalReviewTimeSeconds  float64
	TotalCycleTimeSeconds   float64
	TotalLeadTimeSeconds    float64
	WorkflowComplexityScore int
	ReworkIndicator         bool
	DirectCompletion        bool

	CustomFields [CustomFieldCount]*string

	Active bool
}
