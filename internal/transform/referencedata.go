package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// ReferenceDataTransformer implements C9.1/C9.2: projects+issue-types,
// statuses+relationships, and the optional custom/special field catalog
// (spec.md §4.9.1, §4.9.2, §4.5.3).
type ReferenceDataTransformer struct {
	RawRepo         port.RawExtractionRepository
	ReferenceRepo   port.ReferenceDataRepository
	CustomFieldRepo port.CustomFieldRepository
	Publisher       port.QueuePublisher
}

// NewReferenceDataTransformer builds a ReferenceDataTransformer.
func NewReferenceDataTransformer(rawRepo port.RawExtractionRepository, referenceRepo port.ReferenceDataRepository, customFieldRepo port.CustomFieldRepository, publisher port.QueuePublisher) *ReferenceDataTransformer {
	return &ReferenceDataTransformer{RawRepo: rawRepo, ReferenceRepo: referenceRepo, CustomFieldRepo: customFieldRepo, Publisher: publisher}
}

// jiraProject is the projects-with-issue-types payload shape. It accepts
// both "issueTypes" and "issuetypes" casing, per Open Question #2
// (spec.md §9): two parallel source implementations disagreed on the key,
// one grounded on createmeta, one on project-search.
type jiraProject struct {
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	Name           string          `json:"name"`
	ProjectTypeKey string          `json:"projectTypeKey"`
	IssueTypesA    []jiraIssueType `json:"issueTypes"`
	IssueTypesB    []jiraIssueType `json:"issuetypes"`
}

func (p jiraProject) issueTypes() []jiraIssueType {
	if len(p.IssueTypesA) > 0 {
		return p.IssueTypesA
	}
	return p.IssueTypesB
}

type jiraIssueType struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	HierarchyLevel int    `json:"hierarchyLevel"`
}

// HandleProjectsAndIssueTypes implements §4.9.1: upsert projects, globally
// dedup issue types by external_id, link projects_wits edges ON CONFLICT
// DO NOTHING, and resolve wits_mapping_id by case-insensitive name lookup.
func (t *ReferenceDataTransformer) HandleProjectsAndIssueTypes(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	body, err := loadRaw(ctx, t.RawRepo, env)
	if err != nil {
		return err
	}

	var parsed struct {
		Values []jiraProject `json:"values"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode projects payload: %w", err)
		}
	}

	projects := make([]*domain.Project, 0, len(parsed.Values))
	witByExternalID := make(map[string]*domain.WorkItemType)
	type pendingEdge struct{ projectExternalID, witExternalID string }
	var pending []pendingEdge

	for _, p := range parsed.Values {
		if p.ID == "" {
			continue
		}
		projects = append(projects, &domain.Project{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID,
			ExternalID: p.ID, Key: p.Key, Name: p.Name, ProjectType: p.ProjectTypeKey, Active: true,
		})
		for _, it := range p.issueTypes() {
			if it.ID == "" {
				continue
			}
			if _, ok := witByExternalID[it.ID]; !ok {
				witByExternalID[it.ID] = &domain.WorkItemType{
					TenantID: env.TenantID, IntegrationID: env.IntegrationID,
					ExternalID: it.ID, OriginalName: it.Name, Description: it.Description,
					HierarchyLevel: it.HierarchyLevel, MappingID: resolveWitMappingID(it.Name), Active: true,
				}
			}
			pending = append(pending, pendingEdge{p.ID, it.ID})
		}
	}

	if err := t.ReferenceRepo.UpsertProjects(ctx, projects); err != nil {
		return fmt.Errorf("upsert projects: %w", err)
	}

	wits := make([]*domain.WorkItemType, 0, len(witByExternalID))
	for _, w := range witByExternalID {
		wits = append(wits, w)
	}
	if err := t.ReferenceRepo.UpsertWorkItemTypes(ctx, wits); err != nil {
		return fmt.Errorf("upsert work item types: %w", err)
	}

	if len(pending) > 0 {
		projExt := make([]string, len(projects))
		for i, p := range projects {
			projExt[i] = p.ExternalID
		}
		witExt := make([]string, len(wits))
		for i, w := range wits {
			witExt[i] = w.ExternalID
		}

		projIDs, err := t.ReferenceRepo.ProjectIDsByExternalID(ctx, env.IntegrationID, projExt)
		if err != nil {
			return err
		}
		witIDs, err := t.ReferenceRepo.WitIDsByExternalID(ctx, env.IntegrationID, witExt)
		if err != nil {
			return err
		}

		edges := make([]domain.ProjectWorkItemType, 0, len(pending))
		for _, pe := range pending {
			projID, ok1 := projIDs[pe.projectExternalID]
			witID, ok2 := witIDs[pe.witExternalID]
			if !ok1 || !ok2 {
				// Unresolved FK: null-out and log, don't fail the record
				// (spec.md §3, §7).
				slog.WarnContext(ctx, "unresolved project/work-item-type edge",
					"project_external_id", pe.projectExternalID, "wit_external_id", pe.witExternalID)
				continue
			}
			edges = append(edges, domain.ProjectWorkItemType{ProjectID: projID, WitID: witID})
		}
		if err := t.ReferenceRepo.LinkProjectWits(ctx, edges); err != nil {
			return fmt.Errorf("link project wits: %w", err)
		}
	}

	if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
		return err
	}

	return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
}

// jiraStatusGroup is one issue-type's status list from the
// statuses-by-issue-type response.
type jiraStatusGroup struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Statuses []jiraStatus `json:"statuses"`
}

type jiraStatus struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	StatusCategory struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"statusCategory"`
}

// providerCategory maps a Jira status-category key (new/indeterminate/done)
// or, failing that, its display name, to the lowercase category bucket the
// workflow metrics engine understands (spec.md §4.10).
func providerCategory(key, name string) domain.StatusCategory {
	switch strings.ToLower(key) {
	case "new":
		return domain.StatusCategoryToDo
	case "indeterminate":
		return domain.StatusCategoryInProgress
	case "done":
		return domain.StatusCategoryDone
	}
	switch normalizeCategory(name) {
	case "in progress", "in review":
		return domain.StatusCategoryInProgress
	case "done", "closed", "resolved":
		return domain.StatusCategoryDone
	default:
		return domain.StatusCategoryToDo
	}
}

type statusesPayload struct {
	ProjectID string          `json:"project_id"`
	Statuses  json.RawMessage `json:"statuses"`
}

// HandleStatuses implements §4.9.2: extract distinct statuses and
// (project, status) edges from one project's payload, upsert with
// status_mapping_id resolved by name, link edges ON CONFLICT DO NOTHING,
// and on last_item=true fan out one embedding message per status updated
// since new_last_sync_date.
func (t *ReferenceDataTransformer) HandleStatuses(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	body, err := loadRaw(ctx, t.RawRepo, env)
	if err != nil {
		return err
	}

	var payload statusesPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("decode statuses payload: %w", err)
		}
	}

	var groups []jiraStatusGroup
	if len(payload.Statuses) > 0 {
		if err := json.Unmarshal(payload.Statuses, &groups); err != nil {
			return fmt.Errorf("decode statuses groups: %w", err)
		}
	}

	statusByExternalID := make(map[string]*domain.Status)
	for _, g := range groups {
		for _, s := range g.Statuses {
			if s.ID == "" {
				continue
			}
			if _, ok := statusByExternalID[s.ID]; ok {
				continue
			}
			statusByExternalID[s.ID] = &domain.Status{
				TenantID: env.TenantID, IntegrationID: env.IntegrationID,
				ExternalID: s.ID, OriginalName: s.Name, Description: s.Description,
				Category:  providerCategory(s.StatusCategory.Key, s.StatusCategory.Name),
				MappingID: resolveStatusMappingID(s.Name), Active: true,
			}
		}
	}

	statuses := make([]*domain.Status, 0, len(statusByExternalID))
	for _, s := range statusByExternalID {
		statuses = append(statuses, s)
	}
	if err := t.ReferenceRepo.UpsertStatuses(ctx, statuses); err != nil {
		return fmt.Errorf("upsert statuses: %w", err)
	}

	if payload.ProjectID != "" && len(statuses) > 0 {
		projIDs, err := t.ReferenceRepo.ProjectIDsByExternalID(ctx, env.IntegrationID, []string{payload.ProjectID})
		if err != nil {
			return err
		}
		statusExt := make([]string, len(statuses))
		for i, s := range statuses {
			statusExt[i] = s.ExternalID
		}
		statusIDs, err := t.ReferenceRepo.StatusIDsByExternalID(ctx, env.IntegrationID, statusExt)
		if err != nil {
			return err
		}
		if projID, ok := projIDs[payload.ProjectID]; ok {
			edges := make([]domain.ProjectStatus, 0, len(statuses))
			for _, s := range statuses {
				if statusID, ok := statusIDs[s.ExternalID]; ok {
					edges = append(edges, domain.ProjectStatus{ProjectID: projID, StatusID: statusID})
				}
			}
			if err := t.ReferenceRepo.LinkProjectStatuses(ctx, edges); err != nil {
				return fmt.Errorf("link project statuses: %w", err)
			}
		} else {
			slog.WarnContext(ctx, "unresolved project for status edges", "project_external_id", payload.ProjectID)
		}
	}

	if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
		return err
	}

	if err := t.Publisher.PublishEmbeddingJob(ctx, tier, env); err != nil {
		return err
	}

	if !env.LastItem {
		return nil
	}
	return t.fanOutUpdatedStatuses(ctx, tier, env)
}

// fanOutUpdatedStatuses implements §4.9.2's last_item behavior: query every
// distinct status updated since new_last_sync_date and emit one embedding
// message per status with proper first/last flags. If none were updated,
// nothing further is published — the step is already "finished" from the
// forwarded envelope above.
func (t *ReferenceDataTransformer) fanOutUpdatedStatuses(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	if env.NewLastSync == nil {
		return nil
	}
	since, err := time.Parse(time.RFC3339, *env.NewLastSync)
	if err != nil {
		return fmt.Errorf("parse new_last_sync_date: %w", err)
	}

	updated, err := t.ReferenceRepo.StatusesUpdatedSince(ctx, env.IntegrationID, since)
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		return nil
	}

	for i, s := range updated {
		extID := s.ExternalID
		out := &envelope.Envelope{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID, JobID: env.JobID,
			Token: env.Token, Type: TypeStatusesAndRelations, Provider: env.Provider,
			ExternalID:  &extID,
			FirstItem:   i == 0,
			LastItem:    i == len(updated)-1,
			LastJobItem: env.LastJobItem && i == len(updated)-1,
		}
		if err := t.Publisher.PublishEmbeddingJob(ctx, tier, out); err != nil {
			return err
		}
	}
	return nil
}

// jiraFieldDef is one entry of the /rest/api/3/field/search response,
// covering both the custom-field catalog and special-field discovery
// (spec.md §4.5.3).
type jiraFieldDef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
	Schema struct {
		Type string `json:"type"`
	} `json:"schema"`
}

// HandleCustomFields implements the custom/special field catalog upsert
// and the auto-mapping of the "development" and "sprints" special fields
// into the integration's custom_fields_mapping (spec.md §4.9.1's closing
// bullet: placed here, not under the projects transformer, since this is
// the only transform stage that ever sees special-field payloads).
func (t *ReferenceDataTransformer) HandleCustomFields(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	body, err := loadRaw(ctx, t.RawRepo, env)
	if err != nil {
		return err
	}

	var parsed struct {
		Values []jiraFieldDef `json:"values"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode field catalog: %w", err)
		}
	}

	fields := make([]*domain.CustomField, 0, len(parsed.Values))
	var developmentFieldID, sprintsFieldID *string
	for _, f := range parsed.Values {
		if f.ID == "" {
			continue
		}
		fieldType := f.Schema.Type
		ops := []string{}
		if f.Custom {
			ops = append(ops, "read", "write")
		} else {
			ops = append(ops, "read")
		}
		fields = append(fields, &domain.CustomField{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID,
			ExternalID: f.ID, Name: f.Name, FieldType: fieldType, Operations: ops, Active: true,
		})

		switch strings.ToLower(strings.TrimSpace(f.Name)) {
		case "development":
			id := f.ID
			developmentFieldID = &id
		case "sprint", "sprints":
			id := f.ID
			sprintsFieldID = &id
		}
	}

	if err := t.CustomFieldRepo.UpsertFields(ctx, fields); err != nil {
		return fmt.Errorf("upsert custom fields: %w", err)
	}

	if developmentFieldID != nil || sprintsFieldID != nil {
		if err := t.autoMapSpecialFields(ctx, env.TenantID, env.IntegrationID, developmentFieldID, sprintsFieldID); err != nil {
			return err
		}
	}

	if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
		return err
	}

	return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
}

// autoMapSpecialFields implements spec.md §4.9.1's closing bullet: the
// development and sprints special fields are auto-mapped into
// custom_fields_mapping by name, without requiring a tenant admin to map
// them manually the way the 20 generic custom fields are.
func (t *ReferenceDataTransformer) autoMapSpecialFields(ctx context.Context, tenantID, integrationID uuid.UUID, developmentFieldID, sprintsFieldID *string) error {
	mapping, err := t.CustomFieldRepo.FindMapping(ctx, tenantID, integrationID)
	if err != nil {
		if !errors.Is(err, domain.ErrCustomFieldMappingMissing) {
			return fmt.Errorf("load custom field mapping: %w", err)
		}
		mapping = &domain.CustomFieldMapping{TenantID: tenantID, IntegrationID: integrationID}
	}

	changed := false
	if developmentFieldID != nil && (mapping.DevelopmentFieldID == nil || *mapping.DevelopmentFieldID != *developmentFieldID) {
		mapping.DevelopmentFieldID = developmentFieldID
		changed = true
	}
	if sprintsFieldID != nil && (mapping.SprintsFieldID == nil || *mapping.SprintsFieldID != *sprintsFieldID) {
		mapping.SprintsFieldID = sprintsFieldID
		changed = true
	}
	if !changed {
		return nil
	}
	return t.CustomFieldRepo.SaveMapping(ctx, mapping)
}
