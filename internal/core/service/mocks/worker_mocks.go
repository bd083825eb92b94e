package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// ============================================================================
// MOCK INTEGRATION REPOSITORY
// ============================================================================

type MockIntegrationRepository struct {
	mu           sync.RWMutex
	integrations map[uuid.UUID]*domain.Integration
	FindErr      error
}

func NewMockIntegrationRepository() *MockIntegrationRepository {
	return &MockIntegrationRepository{integrations: make(map[uuid.UUID]*domain.Integration)}
}

func (m *MockIntegrationRepository) AddIntegration(i *domain.Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[i.ID] = i
}

func (m *MockIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.integrations[id]; ok {
		return i, nil
	}
	return nil, domain.ErrIntegrationNotFound
}

func (m *MockIntegrationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Integration
	for _, i := range m.integrations {
		if i.TenantID == tenantID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *MockIntegrationRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	out, _ := m.FindByTenant(ctx, tenantID, 0, 0)
	return int64(len(out)), nil
}

func (m *MockIntegrationRepository) Save(ctx context.Context, i *domain.Integration) error {
	m.AddIntegration(i)
	return nil
}

func (m *MockIntegrationRepository) Update(ctx context.Context, i *domain.Integration) error {
	m.AddIntegration(i)
	return nil
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.integrations, id)
	return nil
}

// ============================================================================
// MOCK TENANT REPOSITORY
// ============================================================================

type MockTenantRepository struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*domain.Tenant
	FindErr error
}

func NewMockTenantRepository() *MockTenantRepository {
	return &MockTenantRepository{tenants: make(map[uuid.UUID]*domain.Tenant)}
}

func (m *MockTenantRepository) AddTenant(t *domain.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tenants[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (m *MockTenantRepository) Save(ctx context.Context, t *domain.Tenant) error {
	m.AddTenant(t)
	return nil
}

// ============================================================================
// MOCK WORK ITEM REPOSITORY
// ============================================================================

type MockWorkItemRepository struct {
	mu            sync.RWMutex
	items         map[string]*domain.WorkItem // keyed by external_id
	DevFlaggedErr error
}

func NewMockWorkItemRepository() *MockWorkItemRepository {
	return &MockWorkItemRepository{items: make(map[string]*domain.WorkItem)}
}

func (m *MockWorkItemRepository) SetDevelopmentFlag(externalID string, development bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[externalID]
	if !ok {
		w = &domain.WorkItem{ExternalID: externalID}
		m.items[externalID] = w
	}
	w.Development = development
}

func (m *MockWorkItemRepository) FindByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]*domain.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.WorkItem)
	for _, id := range externalIDs {
		if w, ok := m.items[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (m *MockWorkItemRepository) BulkInsert(ctx context.Context, items []*domain.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range items {
		m.items[w.ExternalID] = w
	}
	return nil
}

func (m *MockWorkItemRepository) BulkUpdate(ctx context.Context, items []*domain.WorkItem) error {
	return m.BulkInsert(ctx, items)
}

func (m *MockWorkItemRepository) DevelopmentFlaggedExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) ([]string, error) {
	if m.DevFlaggedErr != nil {
		return nil, m.DevFlaggedErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, id := range externalIDs {
		if w, ok := m.items[id]; ok && w.Development {
			out = append(out, id)
		}
	}
	return out, nil
}

// ============================================================================
// MOCK PROVIDER CLIENT
// ============================================================================

type MockProviderClient struct {
	ProjectsWithIssueTypesFn func(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error)
	StatusesByProjectFn      func(ctx context.Context, creds domain.Credentials, baseURL, projectID string) ([]byte, error)
	CustomFieldsFn           func(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error)
	SearchIssuesFn           func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error)
	ApproximateCountFn       func(ctx context.Context, creds domain.Credentials, baseURL, jql string) (int64, error)
	DevStatusFn              func(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error)
}

func (m *MockProviderClient) ProjectsWithIssueTypes(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error) {
	if m.ProjectsWithIssueTypesFn != nil {
		return m.ProjectsWithIssueTypesFn(ctx, creds, baseURL)
	}
	return []byte(`{"values":[]}`), nil
}

func (m *MockProviderClient) StatusesByProject(ctx context.Context, creds domain.Credentials, baseURL, projectID string) ([]byte, error) {
	if m.StatusesByProjectFn != nil {
		return m.StatusesByProjectFn(ctx, creds, baseURL, projectID)
	}
	return []byte(`[]`), nil
}

func (m *MockProviderClient) CustomFields(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error) {
	if m.CustomFieldsFn != nil {
		return m.CustomFieldsFn(ctx, creds, baseURL)
	}
	return []byte(`[]`), nil
}

func (m *MockProviderClient) SearchIssues(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
	if m.SearchIssuesFn != nil {
		return m.SearchIssuesFn(ctx, creds, baseURL, jql, pageToken, maxResults)
	}
	return &port.ProviderPage{Body: []byte(`{"issues":[]}`), IsLast: true}, nil
}

func (m *MockProviderClient) ApproximateCount(ctx context.Context, creds domain.Credentials, baseURL, jql string) (int64, error) {
	if m.ApproximateCountFn != nil {
		return m.ApproximateCountFn(ctx, creds, baseURL, jql)
	}
	return 0, nil
}

func (m *MockProviderClient) DevStatus(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error) {
	if m.DevStatusFn != nil {
		return m.DevStatusFn(ctx, creds, baseURL, issueID)
	}
	return []byte(`{}`), nil
}

// ============================================================================
// MOCK RAW EXTRACTION REPOSITORY
// ============================================================================

type MockRawExtractionRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*domain.RawExtractionData
}

func NewMockRawExtractionRepository() *MockRawExtractionRepository {
	return &MockRawExtractionRepository{rows: make(map[uuid.UUID]*domain.RawExtractionData)}
}

func (m *MockRawExtractionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.RawExtractionData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rows[id]; ok {
		return r, nil
	}
	return nil, domain.ErrRawExtractionNotFound
}

func (m *MockRawExtractionRepository) Save(ctx context.Context, row *domain.RawExtractionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	m.rows[row.ID] = row
	return nil
}

func (m *MockRawExtractionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		r.MarkCompleted()
	}
	return nil
}

func (m *MockRawExtractionRepository) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		r.MarkFailed(detail)
	}
	return nil
}

// ============================================================================
// MOCK EXTRACTION FAILURE REPOSITORY
// ============================================================================

type MockExtractionFailureRepository struct {
	mu       sync.Mutex
	Failures []*domain.ExtractionFailure
}

func NewMockExtractionFailureRepository() *MockExtractionFailureRepository {
	return &MockExtractionFailureRepository{}
}

func (m *MockExtractionFailureRepository) Save(ctx context.Context, f *domain.ExtractionFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, f)
	return nil
}

func (m *MockExtractionFailureRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.ExtractionFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ExtractionFailure
	for _, f := range m.Failures {
		if f.TenantID == tenantID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ============================================================================
// MOCK QUEUE PUBLISHER
// ============================================================================

type MockQueuePublisher struct {
	mu             sync.Mutex
	ExtractionJobs []*envelope.Envelope
	TransformJobs  []*envelope.Envelope
	EmbeddingJobs  []*envelope.Envelope
	PublishErr     error
}

func NewMockQueuePublisher() *MockQueuePublisher {
	return &MockQueuePublisher{}
}

func (m *MockQueuePublisher) SetupQueues(ctx context.Context) error { return nil }

func (m *MockQueuePublisher) PublishExtractionJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionJobs = append(m.ExtractionJobs, env)
	return nil
}

func (m *MockQueuePublisher) PublishTransformJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TransformJobs = append(m.TransformJobs, env)
	return nil
}

func (m *MockQueuePublisher) PublishEmbeddingJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbeddingJobs = append(m.EmbeddingJobs, env)
	return nil
}

// TransformJobsSnapshot copies TransformJobs under the lock, for tests
// racing against a background republish.
func (m *MockQueuePublisher) TransformJobsSnapshot() []*envelope.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*envelope.Envelope, len(m.TransformJobs))
	copy(out, m.TransformJobs)
	return out
}
