// Package envelope defines the canonical message shape carried by every
// pipeline queue and the routing rule that maps a step to its tier queue.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// Envelope is the fixed message shape for extraction, transform, and
// embedding-stage jobs. Every field after Type is optional; a nil
// RawDataID/ExternalID marks a flag (completion) message.
type Envelope struct {
	TenantID      uuid.UUID  `json:"tenant_id"`
	IntegrationID uuid.UUID  `json:"integration_id"`
	JobID         uuid.UUID  `json:"job_id"`
	Token         string     `json:"token"`
	Type          string     `json:"type"`
	Provider      string     `json:"provider"`
	RawDataID     *uuid.UUID `json:"raw_data_id,omitempty"`
	ExternalID    *string    `json:"external_id,omitempty"`
	FirstItem     bool       `json:"first_item"`
	LastItem      bool       `json:"last_item"`
	LastJobItem   bool       `json:"last_job_item"`
	OldLastSync   *string    `json:"old_last_sync_date,omitempty"`
	NewLastSync   *string    `json:"new_last_sync_date,omitempty"`
	RetryCount    int        `json:"retry_count,omitempty"`
}

// IsCompletionMarker reports whether this envelope carries no entity body,
// i.e. it exists purely to carry first/last/last-job flags downstream.
func (e *Envelope) IsCompletionMarker() bool {
	return e.RawDataID == nil && e.ExternalID == nil
}

// Validate enforces the envelope's structural invariants. It does not (and
// cannot, locally) enforce the exactly-one-first/exactly-one-last
// per-step/per-job contract — that is a property of a message stream, not
// of a single message — so callers that emit a step's full message
// sequence are responsible for that (see internal/extract).
func (e *Envelope) Validate() error {
	if e.TenantID == uuid.Nil {
		return fmt.Errorf("%w: missing tenant_id", domain.ErrEnvelopeInvalid)
	}
	if e.IntegrationID == uuid.Nil {
		return fmt.Errorf("%w: missing integration_id", domain.ErrEnvelopeInvalid)
	}
	if e.JobID == uuid.Nil {
		return fmt.Errorf("%w: missing job_id", domain.ErrEnvelopeInvalid)
	}
	if e.Token == "" {
		return fmt.Errorf("%w: missing token", domain.ErrEnvelopeInvalid)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", domain.ErrEnvelopeInvalid)
	}
	return nil
}

// Marshal serializes the envelope for transport over the queue.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal deserializes an envelope previously produced by Marshal.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEnvelopeInvalid, err)
	}
	return &e, nil
}
