package domain

import (
	"time"

	"github.com/google/uuid"
)

// Changelog is one status-transition record for a WorkItem. Rows are
// insert-only, deduped by (work_item_id, external_id). Sorted by
// transition_change_date ASC, a work item's changelog rows form a
// contiguous chain: changelog[i].TransitionStartDate ==
// changelog[i-1].TransitionChangeDate, and changelog[0].TransitionStartDate
// == the work item's Created timestamp.
type Changelog struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	IntegrationID        uuid.UUID
	WorkItemID           uuid.UUID
	ExternalID           string
	FromStatusID         *uuid.UUID
	ToStatusID           *uuid.UUID
	TransitionStartDate  time.Time
	TransitionChangeDate time.Time
	TimeInStatusSeconds  float64
	ChangedBy            string
	Active               bool
}
