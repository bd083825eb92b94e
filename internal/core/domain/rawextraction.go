package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RawExtractionStatus tracks the single allowed transition of a raw
// extraction row: pending -> completed, or pending -> failed.
type RawExtractionStatus string

const (
	RawExtractionPending   RawExtractionStatus = "pending"
	RawExtractionCompleted RawExtractionStatus = "completed"
	RawExtractionFailed    RawExtractionStatus = "failed"
)

// RawExtractionType names the kind of unit staged in one row: a single
// issue, a single dev-status response, or a page of reference data.
type RawExtractionType string

const (
	RawExtractionTypeReferenceData RawExtractionType = "reference_data"
	RawExtractionTypeIssue         RawExtractionType = "issue"
	RawExtractionTypeDevStatus     RawExtractionType = "dev_status"
)

// RawExtractionData is the append-only, write-once staging row for one
// extracted unit: a single issue, a single dev-status response, or a
// reference-data page.
type RawExtractionData struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	Type          RawExtractionType
	RawData       json.RawMessage
	Status        RawExtractionStatus
	ErrorDetails  *string
}

// MarkCompleted transitions a pending row to completed. It is a no-op
// (returns false) if the row has already left the pending state, since the
// invariant is that this transition happens exactly once.
func (r *RawExtractionData) MarkCompleted() bool {
	if r.Status != RawExtractionPending {
		return false
	}
	r.Status = RawExtractionCompleted
	return true
}

// MarkFailed transitions a pending row to failed with the given detail.
func (r *RawExtractionData) MarkFailed(detail string) bool {
	if r.Status != RawExtractionPending {
		return false
	}
	r.Status = RawExtractionFailed
	r.ErrorDetails = &detail
	return true
}
