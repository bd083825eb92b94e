package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractionFailure is a dead-letter row: a message that exhausted its
// retry budget during extraction or transform, preserved for replay and
// operator inspection.
type ExtractionFailure struct {
	TenantID        uuid.UUID
	IntegrationID   uuid.UUID
	ExtractionType  string
	OriginalMessage json.RawMessage
	ErrorMessage    string
	FailedAt        time.Time
}
