package db

import (
	"encoding/json"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Tenant mirrors the tenants table.
type Tenant struct {
	ID     uuid.UUID
	Tier   string
	Active bool
}

// Integration mirrors the integrations table.
type Integration struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Provider         string
	EncryptedCreds   []byte
	BaseURL          string
	BaseSearchFilter string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// JobSchedule mirrors the job_schedules table.
type JobSchedule struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	IntegrationID    uuid.UUID
	JobName          string
	Status           string
	ExecutionOrder   int32
	LastSuccessAt    pgtype.Timestamptz
	LastRunStartedAt pgtype.Timestamptz
	NextRun          pgtype.Timestamptz
	ErrorMessage     *string
	Checkpoint       json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Execution mirrors the executions table.
type Execution struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	JobScheduleID      uuid.UUID
	TemporalWorkflowID *string
	TemporalRunID      *string
	Status             string
	Input              json.RawMessage
	Output             json.RawMessage
	Error              *string
	StartedAt          pgtype.Timestamptz
	CompletedAt        pgtype.Timestamptz
	CreatedBy          pgtype.UUID
	CreatedAt          time.Time
	TriggeredBy        *string
}

// Alert mirrors the alerts table.
type Alert struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	JobScheduleID        pgtype.UUID
	ExecutionID          pgtype.UUID
	Severity             string
	Title                string
	Message              *string
	Status               string
	AcknowledgedAt       pgtype.Timestamptz
	AcknowledgedBy       pgtype.UUID
	ResolvedAt           pgtype.Timestamptz
	ResolvedBy           pgtype.UUID
	CreatedAt            time.Time
	TriggeredByRuleID    pgtype.UUID
	TriggeredExecutionID pgtype.UUID
	Source               *string
	Metadata             json.RawMessage
}

// AlertRule mirrors the alert_rules table.
type AlertRule struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Name                 string
	Description          *string
	Enabled              bool
	ConditionType        string
	ConditionConfig      json.RawMessage
	Severity             string
	AlertTitleTemplate   string
	AlertMessageTemplate *string
	TriggerJobScheduleID pgtype.UUID
	TriggerInputTemplate json.RawMessage
	CooldownSeconds      int32
	LastTriggeredAt      pgtype.Timestamptz
	CreatedBy            pgtype.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AuditLog mirrors the audit_logs table.
type AuditLog struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	UserID       pgtype.UUID
	EventType    string
	ResourceType string
	ResourceID   pgtype.UUID
	Action       string
	OldValue     json.RawMessage
	NewValue     json.RawMessage
	IpAddress    *netip.Addr
	UserAgent    *string
	CreatedAt    time.Time
}

// Metric mirrors the ops_metrics table.
type Metric struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Value     float64
	Labels    json.RawMessage
	Source    *string
	Timestamp time.Time
	CreatedAt time.Time
}
