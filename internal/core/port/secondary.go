package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// ============================================================================
// SECONDARY PORTS (Driven)
// These interfaces define what the application NEEDS from the outside world.
// They are IMPLEMENTED by adapters (postgres, temporal, redis, etc.)
// ============================================================================

// TenantRepository persists Tenant rows.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	Save(ctx context.Context, tenant *domain.Tenant) error
}

// IntegrationRepository persists Integration rows.
type IntegrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Integration, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, integration *domain.Integration) error
	Update(ctx context.Context, integration *domain.Integration) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobScheduleRepository persists JobSchedule rows and implements the
// cycling-selection query used by the sync cycle scheduler.
type JobScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.JobSchedule, error)
	FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]*domain.JobSchedule, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.JobSchedule, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// NextRunnable returns the first READY/PENDING schedule for the
	// integration, ordered by execution_order, whose next_run has elapsed,
	// skipping PAUSED entries. Returns nil, nil if none is eligible.
	NextRunnable(ctx context.Context, integrationID uuid.UUID, now time.Time) (*domain.JobSchedule, error)
	Save(ctx context.Context, js *domain.JobSchedule) error
	Update(ctx context.Context, js *domain.JobSchedule) error
	// AdvanceCycle marks the job after completed's execution_order slot
	// PENDING, skipping PAUSED entries, implementing the JobSchedule cycle.
	AdvanceCycle(ctx context.Context, integrationID uuid.UUID, completedOrder int) error
}

// ExecutionRepository persists Execution (sync run) rows.
type ExecutionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Execution, error)
	FindByJobSchedule(ctx context.Context, jobScheduleID uuid.UUID, limit, offset int) ([]*domain.Execution, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, execution *domain.Execution) error
	Update(ctx context.Context, execution *domain.Execution) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus, errMsg *string) error
	UpdateTemporalIDs(ctx context.Context, id uuid.UUID, temporalWorkflowID, temporalRunID string) error
}

// RawExtractionRepository persists RawExtractionData staging rows.
type RawExtractionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.RawExtractionData, error)
	Save(ctx context.Context, row *domain.RawExtractionData) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
}

// ReferenceDataRepository handles Project, WorkItemType, Status and their
// many-to-many edges to projects — the C9.1/C9.2 transform targets.
type ReferenceDataRepository interface {
	UpsertProjects(ctx context.Context, projects []*domain.Project) error
	UpsertWorkItemTypes(ctx context.Context, wits []*domain.WorkItemType) error
	UpsertStatuses(ctx context.Context, statuses []*domain.Status) error
	LinkProjectWits(ctx context.Context, edges []domain.ProjectWorkItemType) error
	LinkProjectStatuses(ctx context.Context, edges []domain.ProjectStatus) error
	ProjectIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error)
	WitIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error)
	StatusIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error)
	StatusCategoryMap(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]domain.StatusCategory, error)
	StatusesUpdatedSince(ctx context.Context, integrationID uuid.UUID, since time.Time) ([]*domain.Status, error)
}

// CustomFieldRepository handles CustomField and CustomFieldMapping rows.
type CustomFieldRepository interface {
	UpsertFields(ctx context.Context, fields []*domain.CustomField) error
	FindMapping(ctx context.Context, tenantID, integrationID uuid.UUID) (*domain.CustomFieldMapping, error)
	SaveMapping(ctx context.Context, mapping *domain.CustomFieldMapping) error
}

// WorkItemRepository persists WorkItem rows and the resolved-id lookups
// the issue transformer needs.
type WorkItemRepository interface {
	FindByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]*domain.WorkItem, error)
	BulkInsert(ctx context.Context, items []*domain.WorkItem) error
	BulkUpdate(ctx context.Context, items []*domain.WorkItem) error
	// DevelopmentFlaggedExternalIDs narrows externalIDs down to the subset
	// already transformed with development=true, so C7's dev-status
	// fan-out (which must follow the issue transformer's column derivation,
	// spec.md §4.7) can run from the extraction worker without holding a
	// transaction open across the issue transform.
	DevelopmentFlaggedExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) ([]string, error)
}

// ChangelogRepository persists Changelog rows (insert-only, deduped).
type ChangelogRepository interface {
	ExistingExternalIDs(ctx context.Context, workItemID uuid.UUID, externalIDs []string) (map[string]bool, error)
	BulkInsert(ctx context.Context, rows []*domain.Changelog) error
	ChainForWorkItem(ctx context.Context, workItemID uuid.UUID) ([]domain.Changelog, error)
}

// SprintRepository persists Sprint rows and work-item/sprint edges.
type SprintRepository interface {
	UpsertSprints(ctx context.Context, sprints []*domain.Sprint) (map[string]uuid.UUID, error)
	LinkWorkItemSprints(ctx context.Context, edges []domain.WorkItemSprint) error
}

// PrLinkRepository persists WorkItemPrLink rows.
type PrLinkRepository interface {
	ExistingKeys(ctx context.Context, workItemID uuid.UUID) (map[string]bool, error)
	BulkInsert(ctx context.Context, links []*domain.WorkItemPrLink) error
}

// ExtractionFailureRepository persists dead-letter rows.
type ExtractionFailureRepository interface {
	Save(ctx context.Context, f *domain.ExtractionFailure) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.ExtractionFailure, error)
}

// AlertRepository defines the interface for alert persistence
type AlertRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Alert, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, alert *domain.Alert) error
	Update(ctx context.Context, alert *domain.Alert) error
}

// AlertNotifier delivers a triggered alert to an external channel. Failures
// are logged by the caller and never block alert persistence.
type AlertNotifier interface {
	Notify(ctx context.Context, alert *domain.Alert) error
}

// AlertRuleRepository defines the interface for alert rule persistence
type AlertRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.AlertRule, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AlertRule, error)
	FindEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.AlertRule, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, rule *domain.AlertRule) error
	Update(ctx context.Context, rule *domain.AlertRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateLastTriggered(ctx context.Context, id uuid.UUID) error
}

// AuditRepository defines the interface for audit log persistence
type AuditRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditLog, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Save(ctx context.Context, log *domain.AuditLog) error
}

// MetricRepository defines the interface for operational metrics persistence
type MetricRepository interface {
	Save(ctx context.Context, metric *domain.Metric) error
	SaveBatch(ctx context.Context, metrics []*domain.Metric) (int, error)
	FindByQuery(ctx context.Context, query domain.MetricQuery) ([]*domain.Metric, error)
	CountByQuery(ctx context.Context, query domain.MetricQuery) (int64, error)
	FindLatest(ctx context.Context, tenantID uuid.UUID, name string, labels map[string]string) (*domain.Metric, error)
	GetAggregate(ctx context.Context, query domain.MetricQuery) (*domain.MetricAggregate, error)
	GetSeries(ctx context.Context, query domain.MetricQuery, bucketSize time.Duration) ([]*domain.TimeBucket, error)
	ListNames(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
}

// SyncCycleExecutor starts/cancels the Temporal SyncCycleWorkflow that
// drives a JobSchedule's cycling state machine.
type SyncCycleExecutor interface {
	StartSyncCycle(ctx context.Context, tenantID, integrationID uuid.UUID) (*ExecuteResult, error)
	SignalJobCompleted(ctx context.Context, temporalWorkflowID string, jobScheduleID uuid.UUID) error
	Cancel(ctx context.Context, temporalWorkflowID string) error
	GetStatus(ctx context.Context, temporalWorkflowID string) (string, error)
}

// ExecuteResult represents the result of starting a workflow execution
type ExecuteResult struct {
	TemporalWorkflowID string
	TemporalRunID      string
}

// Notifier defines the interface for sending notifications
type Notifier interface {
	SendSlack(ctx context.Context, channel, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// TenantContextSetter defines the interface for setting tenant context (RLS)
type TenantContextSetter interface {
	SetTenantContext(ctx context.Context, tenantID uuid.UUID) error
}

// QueuePublisher publishes pipeline envelopes onto tier queues with
// broker-acknowledged delivery (C2).
type QueuePublisher interface {
	SetupQueues(ctx context.Context) error
	PublishExtractionJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error
	PublishTransformJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error
	PublishEmbeddingJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error
}

// QueueConsumer polls one (step, tier) queue with manual ack.
type QueueConsumer interface {
	GetSingleMessage(ctx context.Context, step envelope.Step, tier domain.Tier, timeout time.Duration) (*QueueMessage, error)
	Ack(ctx context.Context, msg *QueueMessage) error
	Nack(ctx context.Context, msg *QueueMessage) error
}

// QueueMessage wraps a delivered envelope with the broker handle needed to
// ack/nack it. Stream carries the originating (step, tier) queue name so
// Ack/Nack can target the right consumer-group entry.
type QueueMessage struct {
	ID       string
	Stream   string
	Envelope *envelope.Envelope
}

// ProviderClient is the paginated, retrying HTTP client to the external
// issue tracker (C4).
type ProviderClient interface {
	ProjectsWithIssueTypes(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error)
	StatusesByProject(ctx context.Context, creds domain.Credentials, baseURL, projectID string) ([]byte, error)
	CustomFields(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error)
	SearchIssues(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*ProviderPage, error)
	ApproximateCount(ctx context.Context, creds domain.Credentials, baseURL, jql string) (int64, error)
	DevStatus(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error)
}

// ProviderPage is one page of a paginated provider-issue search response.
type ProviderPage struct {
	Body          []byte
	NextPageToken string
	IsLast        bool
}

// RateLimitError surfaces a 429 response without retry, per C4's contract.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return "provider rate limit reached, resets at " + e.ResetAt.String()
}
