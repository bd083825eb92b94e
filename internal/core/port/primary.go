package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orchestrix/tracksync/internal/core/domain"
)

// ============================================================================
// PRIMARY PORTS (Driving)
// These interfaces define what the application OFFERS to the outside world.
// They are IMPLEMENTED by the core services.
// They are CALLED by adapters (http handlers, cli, tests, etc.)
// ============================================================================

// ExecutionMode selects which extractor(s) run_sync dispatches to.
type ExecutionMode string

const (
	ExecutionModeIssueTypes  ExecutionMode = "issuetypes"
	ExecutionModeStatuses    ExecutionMode = "statuses"
	ExecutionModeIssues      ExecutionMode = "issues"
	ExecutionModeCustomQuery ExecutionMode = "custom_query"
	ExecutionModeAll         ExecutionMode = "all"
)

// JobScheduleService is the run_sync entrypoint from spec.md §6 plus
// control-plane CRUD over JobSchedule rows.
type JobScheduleService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*JobScheduleListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.JobSchedule, error)
	Create(ctx context.Context, input CreateJobScheduleInput) (*domain.JobSchedule, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateJobScheduleInput) (*domain.JobSchedule, error)
	Pause(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	// RunSync marks the JobSchedule RUNNING synchronously (409 if already
	// running), starts the sync cycle workflow, and returns the
	// Execution row it created.
	RunSync(ctx context.Context, id uuid.UUID, userID string, input RunSyncInput) (*domain.Execution, error)
	ListExecutions(ctx context.Context, jobScheduleID uuid.UUID, page, limit int) (*ExecutionListResult, error)
}

// ExecutionService defines the primary port for execution (sync run) operations
type ExecutionService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*ExecutionListResult, error)
	ListByJobSchedule(ctx context.Context, jobScheduleID uuid.UUID, page, limit int) (*ExecutionListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// IntegrationService is the primary port for integration CRUD, including
// credential encryption at rest.
type IntegrationService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*IntegrationListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error)
	Create(ctx context.Context, input CreateIntegrationInput) (*domain.Integration, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateIntegrationInput) (*domain.Integration, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AlertService defines the primary port for alert operations
type AlertService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*AlertListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
	Create(ctx context.Context, input CreateAlertInput) (*domain.Alert, error)
	Acknowledge(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Alert, error)
	Resolve(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Alert, error)
}

// AlertRuleService defines the primary port for alert rule operations
type AlertRuleService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*AlertRuleListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AlertRule, error)
	Create(ctx context.Context, input CreateAlertRuleInput) (*domain.AlertRule, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAlertRuleInput) (*domain.AlertRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Evaluate(ctx context.Context, tenantID uuid.UUID, metricName string, value float64) error
}

// AuditService defines the primary port for audit log operations
type AuditService interface {
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*AuditListResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error)
	Log(ctx context.Context, log *domain.AuditLog) error
}

// MetricService is the primary port for the pipeline's operational
// counters (C17). Names are restricted to domain.MetricNames; there is no
// user-defined metric metadata.
type MetricService interface {
	Ingest(ctx context.Context, input IngestMetricInput) error
	IngestBatch(ctx context.Context, input IngestMetricBatchInput) (*IngestBatchResult, error)

	Query(ctx context.Context, query domain.MetricQuery) (*MetricQueryResult, error)
	GetLatest(ctx context.Context, tenantID uuid.UUID, name string, labels map[string]string) (*domain.Metric, error)
	GetAggregate(ctx context.Context, query domain.MetricQuery) (*domain.MetricAggregate, error)
	GetSeries(ctx context.Context, query domain.MetricQuery, bucketSize time.Duration) ([]*domain.TimeBucket, error)
	ListNames(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
}

// ============================================================================
// DTOs - Data Transfer Objects for Primary Ports
// ============================================================================

// JobSchedule DTOs

type CreateJobScheduleInput struct {
	TenantID       uuid.UUID
	IntegrationID  uuid.UUID
	JobName        string
	ExecutionOrder int
}

type UpdateJobScheduleInput struct {
	ExecutionOrder *int
	NextRun        *time.Time
}

type RunSyncInput struct {
	ExecutionMode  ExecutionMode
	CustomQuery    *string
	TargetProjects []string
}

type JobScheduleListResult struct {
	JobSchedules []*domain.JobSchedule
	Total        int64
	Page         int
	Limit        int
}

// Execution DTOs

type ExecutionListResult struct {
	Executions []*domain.Execution
	Total      int64
	Page       int
	Limit      int
}

// Integration DTOs

type CreateIntegrationInput struct {
	TenantID         uuid.UUID
	Provider         string
	Credentials      domain.Credentials
	BaseURL          string
	BaseSearchFilter string
}

type UpdateIntegrationInput struct {
	Credentials      *domain.Credentials
	BaseURL          *string
	BaseSearchFilter *string
	Active           *bool
}

type IntegrationListResult struct {
	Integrations []*domain.Integration
	Total        int64
	Page         int
	Limit        int
}

// Alert DTOs

type CreateAlertInput struct {
	TenantID          uuid.UUID
	JobScheduleID     *uuid.UUID
	ExecutionID       *uuid.UUID
	Severity          domain.AlertSeverity
	Title             string
	Message           *string
	Source            *string
	TriggeredByRuleID *uuid.UUID
}

type AlertListResult struct {
	Alerts []*domain.Alert
	Total  int64
	Page   int
	Limit  int
}

// AlertRule DTOs

type CreateAlertRuleInput struct {
	TenantID             uuid.UUID
	Name                 string
	Description          *string
	ConditionType        string
	ConditionConfig      []byte
	Severity             domain.AlertSeverity
	AlertTitleTemplate   string
	AlertMessageTemplate *string
	TriggerJobScheduleID *uuid.UUID
	TriggerInputTemplate []byte
	CooldownSeconds      int32
	CreatedBy            uuid.UUID
}

type UpdateAlertRuleInput struct {
	Name                 *string
	Description          *string
	Enabled              *bool
	ConditionType        *string
	ConditionConfig      []byte
	Severity             *domain.AlertSeverity
	AlertTitleTemplate   *string
	AlertMessageTemplate *string
	TriggerJobScheduleID *uuid.UUID
	TriggerInputTemplate []byte
	CooldownSeconds      *int32
}

type AlertRuleListResult struct {
	Rules []*domain.AlertRule
	Total int64
	Page  int
	Limit int
}

// Audit DTOs

type AuditListResult struct {
	Logs  []*domain.AuditLog
	Total int64
	Page  int
	Limit int
}

// Metric DTOs

type IngestMetricInput struct {
	TenantID  uuid.UUID
	Name      string
	Value     float64
	Labels    map[string]string
	Source    *string
	Timestamp *time.Time
}

type IngestMetricBatchInput struct {
	TenantID uuid.UUID
	Metrics  []IngestMetricInput
}

type IngestBatchResult struct {
	Ingested int
	Failed   int
	Errors   []string
}

type MetricQueryResult struct {
	Metrics []*domain.Metric
	Total   int64
	Page    int
	Limit   int
}
