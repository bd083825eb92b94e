// Package extract implements C5 (Reference-Data Extractor), C6 (Issue
// Extractor), and C7 (Dev-Status Extractor): the three passive jobs a
// JobSchedule cycles through, each paginating the provider via C4,
// persisting one RawExtractionData row per unit via C3/C12, and
// publishing one transform message per unit via C2.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// Extractor bundles the driven ports every extraction routine needs:
// the provider client (C4), raw staging store (C3/C12), and transform
// queue publisher (C2). It holds no tenant-specific state between calls,
// consistent with spec.md §9's "workers are interchangeable" guidance.
type Extractor struct {
	Provider  port.ProviderClient
	RawRepo   port.RawExtractionRepository
	Publisher port.QueuePublisher
}

// New builds an Extractor.
func New(provider port.ProviderClient, rawRepo port.RawExtractionRepository, publisher port.QueuePublisher) *Extractor {
	return &Extractor{Provider: provider, RawRepo: rawRepo, Publisher: publisher}
}

// Run is the shared context every extraction call threads through: which
// tenant/integration/job is running, the tier its messages route to, and
// the job-execution token correlating all status updates for this run
// (spec.md §4.1).
type Run struct {
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	JobID         uuid.UUID
	Tier          domain.Tier
	Token         string
	Provider      string
	Creds         domain.Credentials
	BaseURL       string
	// OldLastSync/NewLastSync carry this run's sync window (spec.md §4.1)
	// onto every envelope it publishes, so a terminal step's transformer
	// can act on new_last_sync_date (e.g. §4.9.2's updated-since fan-out).
	OldLastSync *time.Time
	NewLastSync *time.Time
}

// NewRun starts a Run with a fresh token nonce.
func NewRun(tenantID, integrationID, jobID uuid.UUID, tier domain.Tier, providerName, baseURL string, creds domain.Credentials) Run {
	return Run{
		TenantID:      tenantID,
		IntegrationID: integrationID,
		JobID:         jobID,
		Tier:          tier,
		Token:         uuid.New().String(),
		Provider:      providerName,
		Creds:         creds,
		BaseURL:       baseURL,
	}
}

// formatSyncTime renders a sync-window timestamp for the envelope, or nil
// if the Run carries none.
func formatSyncTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// persistAndPublish writes one RawExtractionData row and publishes the
// corresponding transform message carrying its id and the given envelope
// flags. This is the shared "one unit = one row = one message" step
// C5/C6/C7 all repeat. The row is left `pending`: per spec.md §3/§7 it is
// the transform stage that drives the row's single transition to
// `completed` (payload applied) or `failed` (bad data), so that "bad
// data" transform failures have somewhere to land.
func (e *Extractor) persistAndPublish(ctx context.Context, run Run, rawType domain.RawExtractionType, msgType string, payload any, externalID string, first, last, lastJob bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal raw payload: %w", err)
	}

	row := &domain.RawExtractionData{
		ID:            uuid.New(),
		TenantID:      run.TenantID,
		IntegrationID: run.IntegrationID,
		Type:          rawType,
		RawData:       body,
		Status:        domain.RawExtractionPending,
	}
	if err := e.RawRepo.Save(ctx, row); err != nil {
		return fmt.Errorf("persist raw extraction row: %w", err)
	}

	env := &envelope.Envelope{
		TenantID:      run.TenantID,
		IntegrationID: run.IntegrationID,
		JobID:         run.JobID,
		Token:         run.Token,
		Type:          msgType,
		Provider:      run.Provider,
		RawDataID:     &row.ID,
		FirstItem:     first,
		LastItem:      last,
		LastJobItem:   lastJob,
		OldLastSync:   formatSyncTime(run.OldLastSync),
		NewLastSync:   formatSyncTime(run.NewLastSync),
	}
	if externalID != "" {
		env.ExternalID = &externalID
	}
	return e.Publisher.PublishTransformJob(ctx, run.Tier, env)
}

// publishFlag emits a completion/flag message with no entity body, per
// spec.md §4.1: "when the pipeline produces zero entities for a terminal
// step, a flag message with empty body and the appropriate flags must
// still be published so downstream status tracking fires."
func (e *Extractor) publishFlag(ctx context.Context, run Run, msgType string, first, last, lastJob bool) error {
	env := &envelope.Envelope{
		TenantID:      run.TenantID,
		IntegrationID: run.IntegrationID,
		JobID:         run.JobID,
		Token:         run.Token,
		Type:          msgType,
		Provider:      run.Provider,
		FirstItem:     first,
		LastItem:      last,
		LastJobItem:   lastJob,
		OldLastSync:   formatSyncTime(run.OldLastSync),
		NewLastSync:   formatSyncTime(run.NewLastSync),
	}
	return e.Publisher.PublishTransformJob(ctx, run.Tier, env)
}

// effectiveJQL computes C6's contract: (base_search) AND updated >= -Nd,
// where N is days since start_window, or -1d if zero/negative.
func effectiveJQL(baseSearch string, startWindow time.Time) string {
	days := int(time.Since(startWindow).Hours() / 24)
	if days <= 0 {
		days = 1
	}
	clause := fmt.Sprintf("updated >= -%dd", days)
	if baseSearch == "" {
		return clause
	}
	return fmt.Sprintf("(%s) AND %s", baseSearch, clause)
}
