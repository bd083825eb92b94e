// Package transform implements C8 (Transform Dispatcher) and C9 (Entity
// Transformers): consumes raw payloads staged by internal/extract,
// resolves cross-entity references, bulk-upserts into the relational
// store, computes derived workflow metrics, and publishes
// completion/embedding signals (spec.md §4.8-§4.9).
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/internal/status"
)

// message types, matching the ones internal/extract publishes (spec.md
// §4.5-§4.7).
const (
	TypeProjectsAndIssueTypes = "jira_projects_and_issue_types"
	TypeStatusesAndRelations  = "jira_statuses_and_relationships"
	TypeCustomFields          = "jira_custom_fields"
	TypeSpecialFields         = "jira_special_fields"
	TypeIssuesWithChangelogs  = "jira_issues_with_changelogs"
	TypeDevStatus             = "jira_dev_status"
)

// Dispatcher implements C8: routes a transform message by its Type to the
// matching entity transformer (C9). A completion/flag marker (nil
// RawDataID, spec.md §4.1) never touches the relational store — it is
// forwarded to the embedding queue untouched so downstream status
// tracking still fires. An unrecognized Type is logged and dropped,
// non-fatal, per spec.md §4.8 and §7.
type Dispatcher struct {
	Publisher port.QueuePublisher
	Reference *ReferenceDataTransformer
	Issue     *IssueTransformer
	DevStatus *DevStatusTransformer
	// Status is optional; when set, a last_job_item crossing is mirrored
	// to the websocket status-broadcast hub (spec.md §6).
	Status *status.Publisher
}

// New builds a Dispatcher wired to its entity transformers. statusPublisher
// may be nil.
func New(publisher port.QueuePublisher, reference *ReferenceDataTransformer, issue *IssueTransformer, devStatus *DevStatusTransformer, statusPublisher *status.Publisher) *Dispatcher {
	return &Dispatcher{Publisher: publisher, Reference: reference, Issue: issue, DevStatus: devStatus, Status: statusPublisher}
}

// Handle routes one transform message, per spec.md §4.8's pre-route rules
// and dispatch table.
func (d *Dispatcher) Handle(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	if env.IsCompletionMarker() {
		if env.LastJobItem && d.Status != nil {
			if err := d.Status.Publish(ctx, status.Event{
				TenantID: env.TenantID, JobID: env.JobID, Status: "job_completed", Timestamp: time.Now(),
			}); err != nil {
				slog.WarnContext(ctx, "status event publish failed", "error", err)
			}
		}
		return d.Publisher.PublishEmbeddingJob(ctx, tier, env)
	}

	switch env.Type {
	case TypeProjectsAndIssueTypes:
		return d.Reference.HandleProjectsAndIssueTypes(ctx, tier, env)
	case TypeStatusesAndRelations:
		return d.Reference.HandleStatuses(ctx, tier, env)
	case TypeCustomFields, TypeSpecialFields:
		return d.Reference.HandleCustomFields(ctx, tier, env)
	case TypeIssuesWithChangelogs:
		return d.Issue.Handle(ctx, tier, env)
	case TypeDevStatus:
		return d.DevStatus.Handle(ctx, tier, env)
	default:
		slog.WarnContext(ctx, "unknown transform message type dropped", "type", env.Type, "tenant_id", env.TenantID, "job_id", env.JobID)
		return nil
	}
}

// loadRaw fetches and returns the raw payload bytes for a non-marker
// envelope, failing loudly if RawDataID is somehow nil (a dispatcher bug,
// not a data problem, so this is not spec.md §7's "bad data" path).
func loadRaw(ctx context.Context, repo port.RawExtractionRepository, env *envelope.Envelope) ([]byte, error) {
	if env.RawDataID == nil {
		return nil, fmt.Errorf("transform: envelope %s/%s has no raw_data_id", env.Type, env.JobID)
	}
	row, err := repo.FindByID(ctx, *env.RawDataID)
	if err != nil {
		return nil, fmt.Errorf("load raw extraction row %s: %w", *env.RawDataID, err)
	}
	return row.RawData, nil
}

// markRawCompleted drives a raw extraction row's single `pending ->
// completed` transition once its entity transformer has successfully
// applied it (spec.md §3, §7). A no-op when the envelope carries no
// raw_data_id (already a marker message, handled before reaching here).
func markRawCompleted(ctx context.Context, repo port.RawExtractionRepository, env *envelope.Envelope) error {
	if env.RawDataID == nil {
		return nil
	}
	if err := repo.MarkCompleted(ctx, *env.RawDataID); err != nil {
		return fmt.Errorf("mark raw extraction completed: %w", err)
	}
	return nil
}

// recordCount ingests one throughput data point. Best-effort: metrics may
// be nil (tests) and an ingest failure must never fail the transform that
// already committed.
func recordCount(ctx context.Context, metrics port.MetricService, env *envelope.Envelope, name string, value float64) {
	if metrics == nil || value == 0 {
		return
	}
	err := metrics.Ingest(ctx, port.IngestMetricInput{
		TenantID: env.TenantID,
		Name:     name,
		Value:    value,
		Labels:   map[string]string{"type": env.Type},
	})
	if err != nil {
		slog.WarnContext(ctx, "throughput metric ingest failed", "name", name, "error", err)
	}
}
