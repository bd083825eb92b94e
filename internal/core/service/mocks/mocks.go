package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

// ============================================================================
// MOCK JOB SCHEDULE REPOSITORY
// ============================================================================

type MockJobScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]*domain.JobSchedule

	// For assertions
	SaveCalled   bool
	UpdateCalled bool
	SaveErr      error
	UpdateErr    error
	FindErr      error
}

func NewMockJobScheduleRepository() *MockJobScheduleRepository {
	return &MockJobScheduleRepository{
		schedules: make(map[uuid.UUID]*domain.JobSchedule),
	}
}

func (m *MockJobScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.JobSchedule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if js, ok := m.schedules[id]; ok {
		return js, nil
	}
	return nil, domain.ErrJobScheduleNotFound
}

func (m *MockJobScheduleRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]*domain.JobSchedule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.JobSchedule
	for _, js := range m.schedules {
		if js.IntegrationID == integrationID {
			result = append(result, js)
		}
	}
	return result, nil
}

func (m *MockJobScheduleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.JobSchedule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.JobSchedule
	for _, js := range m.schedules {
		if js.TenantID == tenantID {
			result = append(result, js)
		}
	}
	if offset >= len(result) {
		return []*domain.JobSchedule{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (m *MockJobScheduleRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if m.FindErr != nil {
		return 0, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, js := range m.schedules {
		if js.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *MockJobScheduleRepository) NextRunnable(ctx context.Context, integrationID uuid.UUID, now time.Time) (*domain.JobSchedule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.JobSchedule
	for _, js := range m.schedules {
		if js.IntegrationID != integrationID || !js.CanRun(now) {
			continue
		}
		if best == nil || js.ExecutionOrder < best.ExecutionOrder {
			best = js
		}
	}
	return best, nil
}

func (m *MockJobScheduleRepository) Save(ctx context.Context, js *domain.JobSchedule) error {
	m.SaveCalled = true
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[js.ID] = js
	return nil
}

func (m *MockJobScheduleRepository) Update(ctx context.Context, js *domain.JobSchedule) error {
	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[js.ID] = js
	return nil
}

func (m *MockJobScheduleRepository) AdvanceCycle(ctx context.Context, integrationID uuid.UUID, completedOrder int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *domain.JobSchedule
	for _, js := range m.schedules {
		if js.IntegrationID != integrationID || js.ExecutionOrder <= completedOrder || js.Status == domain.JobSchedulePaused {
			continue
		}
		if next == nil || js.ExecutionOrder < next.ExecutionOrder {
			next = js
		}
	}
	if next != nil {
		next.Status = domain.JobSchedulePending
	}
	return nil
}

// AddJobSchedule adds a schedule to the mock repository (for test setup)
func (m *MockJobScheduleRepository) AddJobSchedule(js *domain.JobSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[js.ID] = js
}

// ============================================================================
// MOCK EXECUTION REPOSITORY
// ============================================================================

type MockExecutionRepository struct {
	mu         sync.RWMutex
	executions map[uuid.UUID]*domain.Execution

	SaveCalled   bool
	UpdateCalled bool
	SaveErr      error
	UpdateErr    error
	FindErr      error
}

func NewMockExecutionRepository() *MockExecutionRepository {
	return &MockExecutionRepository{
		executions: make(map[uuid.UUID]*domain.Execution),
	}
}

func (m *MockExecutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.executions[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockExecutionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Execution, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Execution
	for _, e := range m.executions {
		if e.TenantID == tenantID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockExecutionRepository) FindByJobSchedule(ctx context.Context, jobScheduleID uuid.UUID, limit, offset int) ([]*domain.Execution, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Execution
	for _, e := range m.executions {
		if e.JobScheduleID == jobScheduleID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockExecutionRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if m.FindErr != nil {
		return 0, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, e := range m.executions {
		if e.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *domain.Execution) error {
	m.SaveCalled = true
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[execution.ID] = execution
	return nil
}

func (m *MockExecutionRepository) Update(ctx context.Context, execution *domain.Execution) error {
	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[execution.ID] = execution
	return nil
}

func (m *MockExecutionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus, errMsg *string) error {
	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.executions[id]; ok {
		e.Status = status
		e.Error = errMsg
	}
	return nil
}

func (m *MockExecutionRepository) UpdateTemporalIDs(ctx context.Context, id uuid.UUID, temporalWorkflowID, temporalRunID string) error {
	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.executions[id]; ok {
		e.TemporalWorkflowID = &temporalWorkflowID
		e.TemporalRunID = &temporalRunID
	}
	return nil
}

// ============================================================================
// MOCK SYNC CYCLE EXECUTOR
// ============================================================================

type MockSyncCycleExecutor struct {
	StartCalled       bool
	SignalCalled      bool
	CancelCalled      bool
	StartErr          error
	SignalErr         error
	CancelErr         error
	StartResult       *port.ExecuteResult
	LastTenantID      uuid.UUID
	LastIntegrationID uuid.UUID
}

func NewMockSyncCycleExecutor() *MockSyncCycleExecutor {
	return &MockSyncCycleExecutor{
		StartResult: &port.ExecuteResult{
			TemporalWorkflowID: "temporal-workflow-123",
			TemporalRunID:      "temporal-run-456",
		},
	}
}

func (m *MockSyncCycleExecutor) StartSyncCycle(ctx context.Context, tenantID, integrationID uuid.UUID) (*port.ExecuteResult, error) {
	m.StartCalled = true
	m.LastTenantID = tenantID
	m.LastIntegrationID = integrationID
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	return m.StartResult, nil
}

func (m *MockSyncCycleExecutor) SignalJobCompleted(ctx context.Context, temporalWorkflowID string, jobScheduleID uuid.UUID) error {
	m.SignalCalled = true
	return m.SignalErr
}

func (m *MockSyncCycleExecutor) Cancel(ctx context.Context, temporalWorkflowID string) error {
	m.CancelCalled = true
	return m.CancelErr
}

func (m *MockSyncCycleExecutor) GetStatus(ctx context.Context, temporalWorkflowID string) (string, error) {
	return "running", nil
}

// ============================================================================
// MOCK AUDIT SERVICE
// ============================================================================

type MockAuditService struct {
	LogCalled bool
	Logs      []*domain.AuditLog
	LogErr    error
}

func NewMockAuditService() *MockAuditService {
	return &MockAuditService{
		Logs: make([]*domain.AuditLog, 0),
	}
}

func (m *MockAuditService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*port.AuditListResult, error) {
	return &port.AuditListResult{
		Logs:  m.Logs,
		Total: int64(len(m.Logs)),
		Page:  page,
		Limit: limit,
	}, nil
}

func (m *MockAuditService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	for _, log := range m.Logs {
		if log.ID == id {
			return log, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAuditService) Log(ctx context.Context, log *domain.AuditLog) error {
	m.LogCalled = true
	if m.LogErr != nil {
		return m.LogErr
	}
	m.Logs = append(m.Logs, log)
	return nil
}

// ============================================================================
// MOCK TENANT CONTEXT SETTER
// ============================================================================

type MockTenantContextSetter struct {
	SetCalled bool
	SetErr    error
	TenantID  uuid.UUID
}

func NewMockTenantContextSetter() *MockTenantContextSetter {
	return &MockTenantContextSetter{}
}

func (m *MockTenantContextSetter) SetTenantContext(ctx context.Context, tenantID uuid.UUID) error {
	m.SetCalled = true
	m.TenantID = tenantID
	return m.SetErr
}

// ============================================================================
// MOCK ALERT REPOSITORY
// ============================================================================

type MockAlertRepository struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*domain.Alert

	SaveCalled   bool
	UpdateCalled bool
	SaveErr      error
	UpdateErr    error
	FindErr      error
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{
		alerts: make(map[uuid.UUID]*domain.Alert),
	}
}

func (m *MockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.alerts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockAlertRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Alert, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Alert
	for _, a := range m.alerts {
		if a.TenantID == tenantID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MockAlertRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if m.FindErr != nil {
		return 0, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, a := range m.alerts {
		if a.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *MockAlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	m.SaveCalled = true
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return nil
}

func (m *MockAlertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	m.UpdateCalled = true
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return nil
}

func (m *MockAlertRepository) AddAlert(a *domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
}

// ============================================================================
// MOCK AUDIT REPOSITORY
// ============================================================================

type MockAuditRepository struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]*domain.AuditLog

	SaveCalled bool
	SaveErr    error
	FindErr    error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{
		logs: make(map[uuid.UUID]*domain.AuditLog),
	}
}

func (m *MockAuditRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.logs[id]; ok {
		return l, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockAuditRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditLog, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AuditLog
	for _, l := range m.logs {
		if l.TenantID == tenantID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *MockAuditRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if m.FindErr != nil {
		return 0, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, l := range m.logs {
		if l.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *MockAuditRepository) Save(ctx context.Context, log *domain.AuditLog) error {
	m.SaveCalled = true
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[log.ID] = log
	return nil
}

// ============================================================================
// MOCK ALERT RULE REPOSITORY
// ============================================================================

type MockAlertRuleRepository struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*domain.AlertRule

	SaveCalled           bool
	UpdateCalled         bool
	DeleteCalled         bool
	LastTriggeredUpdated bool
	SaveErr              error
	FindErr              error
}

func NewMockAlertRuleRepository() *MockAlertRuleRepository {
	return &MockAlertRuleRepository{rules: make(map[uuid.UUID]*domain.AlertRule)}
}

func (m *MockAlertRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AlertRule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	return nil, domain.ErrAlertRuleNotFound
}

func (m *MockAlertRuleRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AlertRule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AlertRule
	for _, r := range m.rules {
		if r.TenantID == tenantID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockAlertRuleRepository) FindEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.AlertRule, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.AlertRule
	for _, r := range m.rules {
		if r.TenantID == tenantID && r.Enabled {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockAlertRuleRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	rules, err := m.FindByTenant(ctx, tenantID, 0, 0)
	return int64(len(rules)), err
}

func (m *MockAlertRuleRepository) Save(ctx context.Context, rule *domain.AlertRule) error {
	m.SaveCalled = true
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *MockAlertRuleRepository) Update(ctx context.Context, rule *domain.AlertRule) error {
	m.UpdateCalled = true
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *MockAlertRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.DeleteCalled = true
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

func (m *MockAlertRuleRepository) UpdateLastTriggered(ctx context.Context, id uuid.UUID) error {
	m.LastTriggeredUpdated = true
	return nil
}

func (m *MockAlertRuleRepository) AddRule(rule *domain.AlertRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
}
