package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// ============================================================================
// MOCK REFERENCE DATA REPOSITORY
// ============================================================================

type MockReferenceDataRepository struct {
	mu sync.RWMutex

	Projects   map[string]uuid.UUID // external_id -> id
	Wits       map[string]uuid.UUID
	Statuses   map[string]uuid.UUID
	Categories map[uuid.UUID]domain.StatusCategory

	UpsertedProjects []*domain.Project
	UpsertedWits     []*domain.WorkItemType
	UpsertedStatuses []*domain.Status
	ProjectWitEdges  []domain.ProjectWorkItemType
	ProjectStatEdges []domain.ProjectStatus
	UpdatedStatuses  []*domain.Status
}

func NewMockReferenceDataRepository() *MockReferenceDataRepository {
	return &MockReferenceDataRepository{
		Projects:   make(map[string]uuid.UUID),
		Wits:       make(map[string]uuid.UUID),
		Statuses:   make(map[string]uuid.UUID),
		Categories: make(map[uuid.UUID]domain.StatusCategory),
	}
}

// AddStatus registers a resolvable status with its category and returns
// its internal id.
func (m *MockReferenceDataRepository) AddStatus(externalID string, category domain.StatusCategory) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.Statuses[externalID] = id
	m.Categories[id] = category
	return id
}

func (m *MockReferenceDataRepository) AddProject(externalID string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.Projects[externalID] = id
	return id
}

func (m *MockReferenceDataRepository) AddWit(externalID string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.Wits[externalID] = id
	return id
}

func (m *MockReferenceDataRepository) UpsertProjects(ctx context.Context, projects []*domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range projects {
		if _, ok := m.Projects[p.ExternalID]; !ok {
			m.Projects[p.ExternalID] = uuid.New()
		}
		p.ID = m.Projects[p.ExternalID]
	}
	m.UpsertedProjects = append(m.UpsertedProjects, projects...)
	return nil
}

func (m *MockReferenceDataRepository) UpsertWorkItemTypes(ctx context.Context, wits []*domain.WorkItemType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wits {
		if _, ok := m.Wits[w.ExternalID]; !ok {
			m.Wits[w.ExternalID] = uuid.New()
		}
		w.ID = m.Wits[w.ExternalID]
	}
	m.UpsertedWits = append(m.UpsertedWits, wits...)
	return nil
}

func (m *MockReferenceDataRepository) UpsertStatuses(ctx context.Context, statuses []*domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range statuses {
		if _, ok := m.Statuses[s.ExternalID]; !ok {
			m.Statuses[s.ExternalID] = uuid.New()
		}
		s.ID = m.Statuses[s.ExternalID]
		m.Categories[s.ID] = s.Category
	}
	m.UpsertedStatuses = append(m.UpsertedStatuses, statuses...)
	return nil
}

func (m *MockReferenceDataRepository) LinkProjectWits(ctx context.Context, edges []domain.ProjectWorkItemType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProjectWitEdges = append(m.ProjectWitEdges, edges...)
	return nil
}

func (m *MockReferenceDataRepository) LinkProjectStatuses(ctx context.Context, edges []domain.ProjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProjectStatEdges = append(m.ProjectStatEdges, edges...)
	return nil
}

func (m *MockReferenceDataRepository) lookup(src map[string]uuid.UUID, externalIDs []string) map[string]uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uuid.UUID)
	for _, e := range externalIDs {
		if id, ok := src[e]; ok {
			out[e] = id
		}
	}
	return out
}

func (m *MockReferenceDataRepository) ProjectIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return m.lookup(m.Projects, externalIDs), nil
}

func (m *MockReferenceDataRepository) WitIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return m.lookup(m.Wits, externalIDs), nil
}

func (m *MockReferenceDataRepository) StatusIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return m.lookup(m.Statuses, externalIDs), nil
}

func (m *MockReferenceDataRepository) StatusCategoryMap(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]domain.StatusCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]domain.StatusCategory, len(m.Categories))
	for k, v := range m.Categories {
		out[k] = v
	}
	return out, nil
}

func (m *MockReferenceDataRepository) StatusesUpdatedSince(ctx context.Context, integrationID uuid.UUID, since time.Time) ([]*domain.Status, error) {
	return m.UpdatedStatuses, nil
}

// ============================================================================
// MOCK CUSTOM FIELD REPOSITORY
// ============================================================================

type MockCustomFieldRepository struct {
	mu      sync.RWMutex
	Mapping *domain.CustomFieldMapping
	Fields  []*domain.CustomField
}

func NewMockCustomFieldRepository() *MockCustomFieldRepository {
	return &MockCustomFieldRepository{}
}

func (m *MockCustomFieldRepository) UpsertFields(ctx context.Context, fields []*domain.CustomField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fields = append(m.Fields, fields...)
	return nil
}

func (m *MockCustomFieldRepository) FindMapping(ctx context.Context, tenantID, integrationID uuid.UUID) (*domain.CustomFieldMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Mapping == nil {
		return nil, domain.ErrCustomFieldMappingMissing
	}
	return m.Mapping, nil
}

func (m *MockCustomFieldRepository) SaveMapping(ctx context.Context, mapping *domain.CustomFieldMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mapping = mapping
	return nil
}

// ============================================================================
// MOCK CHANGELOG REPOSITORY
// ============================================================================

type MockChangelogRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID][]*domain.Changelog // by work item id
}

func NewMockChangelogRepository() *MockChangelogRepository {
	return &MockChangelogRepository{rows: make(map[uuid.UUID][]*domain.Changelog)}
}

func (m *MockChangelogRepository) ExistingExternalIDs(ctx context.Context, workItemID uuid.UUID, externalIDs []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool)
	for _, row := range m.rows[workItemID] {
		out[row.ExternalID] = true
	}
	return out, nil
}

func (m *MockChangelogRepository) BulkInsert(ctx context.Context, rows []*domain.Changelog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		m.rows[r.WorkItemID] = append(m.rows[r.WorkItemID], r)
	}
	return nil
}

func (m *MockChangelogRepository) ChainForWorkItem(ctx context.Context, workItemID uuid.UUID) ([]domain.Changelog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.rows[workItemID]
	chain := make([]domain.Changelog, len(rows))
	for i, r := range rows {
		chain[i] = *r
	}
	// Chronological, the order ChainForWorkItem guarantees.
	for i := 1; i < len(chain); i++ {
		for j := i; j > 0 && chain[j].TransitionChangeDate.Before(chain[j-1].TransitionChangeDate); j-- {
			chain[j], chain[j-1] = chain[j-1], chain[j]
		}
	}
	return chain, nil
}

func (m *MockChangelogRepository) Rows(workItemID uuid.UUID) []*domain.Changelog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[workItemID]
}

// ============================================================================
// MOCK SPRINT REPOSITORY
// ============================================================================

type MockSprintRepository struct {
	mu      sync.Mutex
	Sprints map[string]uuid.UUID // external_id -> id
	Edges   map[string]domain.WorkItemSprint
}

func NewMockSprintRepository() *MockSprintRepository {
	return &MockSprintRepository{
		Sprints: make(map[string]uuid.UUID),
		Edges:   make(map[string]domain.WorkItemSprint),
	}
}

func (m *MockSprintRepository) UpsertSprints(ctx context.Context, sprints []*domain.Sprint) (map[string]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uuid.UUID, len(sprints))
	for _, s := range sprints {
		if _, ok := m.Sprints[s.ExternalID]; !ok {
			m.Sprints[s.ExternalID] = uuid.New()
		}
		out[s.ExternalID] = m.Sprints[s.ExternalID]
	}
	return out, nil
}

func (m *MockSprintRepository) LinkWorkItemSprints(ctx context.Context, edges []domain.WorkItemSprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range edges {
		// Same conflict target as the table's unique constraint.
		key := e.WorkItemID.String() + "/" + e.SprintID.String() + "/" + e.AddedDate.UTC().String()
		if _, ok := m.Edges[key]; ok {
			continue
		}
		m.Edges[key] = e
	}
	return nil
}

// ============================================================================
// MOCK PR LINK REPOSITORY
// ============================================================================

type MockPrLinkRepository struct {
	mu    sync.Mutex
	Links []*domain.WorkItemPrLink
}

func NewMockPrLinkRepository() *MockPrLinkRepository {
	return &MockPrLinkRepository{}
}

func (m *MockPrLinkRepository) ExistingKeys(ctx context.Context, workItemID uuid.UUID) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, l := range m.Links {
		if l.WorkItemID == workItemID {
			out[l.ExternalRepoID+"/"+strconv.Itoa(l.PullRequestNumber)] = true
		}
	}
	return out, nil
}

func (m *MockPrLinkRepository) BulkInsert(ctx context.Context, links []*domain.WorkItemPrLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Links = append(m.Links, links...)
	return nil
}
