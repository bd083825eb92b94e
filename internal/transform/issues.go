package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/internal/workflowmetrics"
	"github.com/orchestrix/tracksync/pkg/util"
)

// IssueTransformer implements C9.3, the core of the transform stage: one
// provider issue (with its embedded changelog) in, one normalized
// WorkItem plus its Changelog/Sprint edges out.
type IssueTransformer struct {
	RawRepo         port.RawExtractionRepository
	ReferenceRepo   port.ReferenceDataRepository
	CustomFieldRepo port.CustomFieldRepository
	WorkItemRepo    port.WorkItemRepository
	ChangelogRepo   port.ChangelogRepository
	SprintRepo      port.SprintRepository
	Publisher       port.QueuePublisher
	// Metrics is optional; when set, per-issue throughput counters land in
	// the operational metrics store.
	Metrics port.MetricService
}

// NewIssueTransformer builds an IssueTransformer.
func NewIssueTransformer(rawRepo port.RawExtractionRepository, referenceRepo port.ReferenceDataRepository, customFieldRepo port.CustomFieldRepository, workItemRepo port.WorkItemRepository, changelogRepo port.ChangelogRepository, sprintRepo port.SprintRepository, publisher port.QueuePublisher) *IssueTransformer {
	return &IssueTransformer{
		RawRepo: rawRepo, ReferenceRepo: referenceRepo, CustomFieldRepo: customFieldRepo,
		WorkItemRepo: workItemRepo, ChangelogRepo: changelogRepo, SprintRepo: sprintRepo, Publisher: publisher,
	}
}

type jiraIssue struct {
	ID        string         `json:"id"`
	Key       string         `json:"key"`
	Fields    map[string]any `json:"fields"`
	Changelog struct {
		Histories []jiraHistory `json:"histories"`
	} `json:"changelog"`
}

type jiraHistory struct {
	ID      string `json:"id"`
	Created string `json:"created"`
	Author  struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Items []jiraHistoryItem `json:"items"`
}

type jiraHistoryItem struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Handle implements §4.9.3. Each call owns exactly one issue and runs
// under what the caller (the worker pool's per-message transaction scope)
// treats as a single unit of work, per spec.md §4.11.
func (t *IssueTransformer) Handle(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	body, err := loadRaw(ctx, t.RawRepo, env)
	if err != nil {
		return err
	}

	var raw jiraIssue
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode issue payload: %w", err)
	}
	if raw.ID == "" || raw.Key == "" {
		detail := fmt.Sprintf("issue payload missing required field id/key (job %s)", env.JobID)
		if env.RawDataID != nil {
			if markErr := t.RawRepo.MarkFailed(ctx, *env.RawDataID, detail); markErr != nil {
				return fmt.Errorf("mark raw extraction failed: %w", markErr)
			}
		}
		return fmt.Errorf("transform: %s", detail)
	}

	mapping, err := t.CustomFieldRepo.FindMapping(ctx, env.TenantID, env.IntegrationID)
	if err != nil {
		if !errors.Is(err, domain.ErrCustomFieldMappingMissing) {
			return fmt.Errorf("load custom field mapping: %w", err)
		}
		mapping = &domain.CustomFieldMapping{TenantID: env.TenantID, IntegrationID: env.IntegrationID}
	}

	existingByExt, err := t.WorkItemRepo.FindByExternalIDs(ctx, env.IntegrationID, []string{raw.ID})
	if err != nil {
		return fmt.Errorf("look up existing work item: %w", err)
	}

	wi := t.buildWorkItem(env, raw, mapping)
	if err := t.resolveForeignKeys(ctx, env, raw, wi); err != nil {
		return err
	}

	if prev := existingByExt[raw.ID]; prev == nil {
		wi.ID = uuid.New()
		if err := t.WorkItemRepo.BulkInsert(ctx, []*domain.WorkItem{wi}); err != nil {
			return fmt.Errorf("insert work item: %w", err)
		}
	} else {
		wi.ID = prev.ID
		if err := t.WorkItemRepo.BulkUpdate(ctx, []*domain.WorkItem{wi}); err != nil {
			return fmt.Errorf("update work item: %w", err)
		}
	}

	if err := t.associateSprints(ctx, env, raw, mapping, wi); err != nil {
		return err
	}

	inserted, err := t.processChangelog(ctx, env, raw, wi)
	if err != nil {
		return err
	}

	if err := t.recomputeMetrics(ctx, env, wi); err != nil {
		return err
	}

	if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
		return err
	}

	recordCount(ctx, t.Metrics, env, domain.MetricIssuesProcessed, 1)
	recordCount(ctx, t.Metrics, env, domain.MetricChangelogsInserted, float64(inserted))

	return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
}

func (t *IssueTransformer) buildWorkItem(env *envelope.Envelope, raw jiraIssue, mapping *domain.CustomFieldMapping) *domain.WorkItem {
	f := raw.Fields
	wi := &domain.WorkItem{
		TenantID:      env.TenantID,
		IntegrationID: env.IntegrationID,
		ExternalID:    raw.ID,
		Key:           raw.Key,
		Summary:       fieldString(f, "summary"),
		Description:   descriptionText(f["description"]),
		Priority:      fieldSubObjectString(f, "priority", "name"),
		Resolution:    fieldSubObjectString(f, "resolution", "name"),
		Assignee:      fieldSubObjectString(f, "assignee", "displayName"),
		Labels:        fieldLabels(f),
		Created:       fieldTime(f, "created"),
		Updated:       fieldTime(f, "updated"),
		Active:        true,
	}
	wi.ParentExternalID = util.StringPtr(fieldSubObjectID(f, "parent"))

	if mapping.TeamFieldID != nil {
		wi.Team = newProviderValue(f[*mapping.TeamFieldID]).displayString()
	}
	if mapping.DevelopmentFieldID != nil {
		wi.Development = !newProviderValue(f[*mapping.DevelopmentFieldID]).isEmpty()
	}
	if mapping.StoryPointsFieldID != nil {
		wi.StoryPoints = newProviderValue(f[*mapping.StoryPointsFieldID]).asFloat()
	}
	for i, fieldID := range mapping.CustomFieldIDs {
		if fieldID == nil {
			continue
		}
		s := newProviderValue(f[*fieldID]).displayString()
		if s == "" {
			continue
		}
		wi.CustomFields[i] = &s
	}

	return wi
}

func (t *IssueTransformer) resolveForeignKeys(ctx context.Context, env *envelope.Envelope, raw jiraIssue, wi *domain.WorkItem) error {
	f := raw.Fields
	projectExt := fieldSubObjectID(f, "project")
	witExt := fieldSubObjectID(f, "issuetype")
	statusExt := fieldSubObjectID(f, "status")

	if projectExt != "" {
		ids, err := t.ReferenceRepo.ProjectIDsByExternalID(ctx, env.IntegrationID, []string{projectExt})
		if err != nil {
			return err
		}
		if id, ok := ids[projectExt]; ok {
			wi.ProjectID = &id
		}
	}
	if witExt != "" {
		ids, err := t.ReferenceRepo.WitIDsByExternalID(ctx, env.IntegrationID, []string{witExt})
		if err != nil {
			return err
		}
		if id, ok := ids[witExt]; ok {
			wi.WitID = &id
		}
	}
	if statusExt != "" {
		ids, err := t.ReferenceRepo.StatusIDsByExternalID(ctx, env.IntegrationID, []string{statusExt})
		if err != nil {
			return err
		}
		if id, ok := ids[statusExt]; ok {
			wi.StatusID = &id
		}
	}
	return nil
}

func (t *IssueTransformer) associateSprints(ctx context.Context, env *envelope.Envelope, raw jiraIssue, mapping *domain.CustomFieldMapping, wi *domain.WorkItem) error {
	if mapping.SprintsFieldID == nil {
		return nil
	}
	entries := parseSprintEntries(raw.Fields[*mapping.SprintsFieldID])
	if len(entries) == 0 {
		return nil
	}

	sprints := make([]*domain.Sprint, 0, len(entries))
	for _, e := range entries {
		sprints = append(sprints, &domain.Sprint{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID,
			ExternalID: e.ExternalID, BoardID: e.BoardID, Name: e.Name, State: e.State, Active: true,
		})
	}
	sprintIDs, err := t.SprintRepo.UpsertSprints(ctx, sprints)
	if err != nil {
		return fmt.Errorf("upsert sprints: %w", err)
	}

	edges := make([]domain.WorkItemSprint, 0, len(entries))
	addedDate := wi.Updated
	if addedDate.IsZero() {
		addedDate = wi.Created
	}
	for _, e := range entries {
		sprintID, ok := sprintIDs[e.ExternalID]
		if !ok {
			continue
		}
		edges = append(edges, domain.WorkItemSprint{
			WorkItemID: wi.ID, SprintID: sprintID, TenantID: env.TenantID, AddedDate: addedDate, Active: true,
		})
	}
	return t.SprintRepo.LinkWorkItemSprints(ctx, edges)
}

func (t *IssueTransformer) processChangelog(ctx context.Context, env *envelope.Envelope, raw jiraIssue, wi *domain.WorkItem) (int, error) {
	statusHistories := make([]jiraHistory, 0, len(raw.Changelog.Histories))
	for _, h := range raw.Changelog.Histories {
		for _, item := range h.Items {
			if item.Field == "status" {
				statusHistories = append(statusHistories, h)
				break
			}
		}
	}
	if len(statusHistories) == 0 {
		return 0, nil
	}
	sort.Slice(statusHistories, func(i, j int) bool {
		return parseJiraTime(statusHistories[i].Created).Before(parseJiraTime(statusHistories[j].Created))
	})

	extIDSet := make(map[string]struct{}, len(statusHistories)*2)
	for _, h := range statusHistories {
		for _, item := range h.Items {
			if item.Field != "status" {
				continue
			}
			if item.From != "" {
				extIDSet[item.From] = struct{}{}
			}
			if item.To != "" {
				extIDSet[item.To] = struct{}{}
			}
		}
	}
	extIDs := make([]string, 0, len(extIDSet))
	for id := range extIDSet {
		extIDs = append(extIDs, id)
	}
	statusIDs, err := t.ReferenceRepo.StatusIDsByExternalID(ctx, env.IntegrationID, extIDs)
	if err != nil {
		return 0, err
	}

	rows := make([]*domain.Changelog, 0, len(statusHistories))
	startDate := wi.Created
	for i, h := range statusHistories {
		changeDate := parseJiraTime(h.Created)
		if i > 0 {
			startDate = parseJiraTime(statusHistories[i-1].Created)
		}

		var statusItem *jiraHistoryItem
		for idx := range h.Items {
			if h.Items[idx].Field == "status" {
				statusItem = &h.Items[idx]
				break
			}
		}
		if statusItem == nil {
			continue
		}

		row := &domain.Changelog{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID, WorkItemID: wi.ID,
			ExternalID:           h.ID,
			TransitionStartDate:  startDate,
			TransitionChangeDate: changeDate,
			TimeInStatusSeconds:  changeDate.Sub(startDate).Seconds(),
			ChangedBy:            h.Author.DisplayName,
			Active:               true,
		}
		if id, ok := statusIDs[statusItem.From]; ok {
			row.FromStatusID = &id
		}
		if id, ok := statusIDs[statusItem.To]; ok {
			row.ToStatusID = &id
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	existingExtIDs := make([]string, len(rows))
	for i, r := range rows {
		existingExtIDs[i] = r.ExternalID
	}
	already, err := t.ChangelogRepo.ExistingExternalIDs(ctx, wi.ID, existingExtIDs)
	if err != nil {
		return 0, fmt.Errorf("look up existing changelog rows: %w", err)
	}

	fresh := rows[:0]
	for _, r := range rows {
		if !already[r.ExternalID] {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := t.ChangelogRepo.BulkInsert(ctx, fresh); err != nil {
		return 0, fmt.Errorf("insert changelog rows: %w", err)
	}
	return len(fresh), nil
}

// recomputeMetrics derives the work item's metric columns from its full
// stored changelog chain. Runs on every transform of the item, new
// changelog rows or not: the columns are a pure function of the chain, and
// the insert/update above rebuilt the row with zeroed columns.
func (t *IssueTransformer) recomputeMetrics(ctx context.Context, env *envelope.Envelope, wi *domain.WorkItem) error {
	chain, err := t.ChangelogRepo.ChainForWorkItem(ctx, wi.ID)
	if err != nil {
		return fmt.Errorf("load changelog chain: %w", err)
	}
	if len(chain) == 0 {
		return nil
	}
	categoryOf, err := t.ReferenceRepo.StatusCategoryMap(ctx, env.IntegrationID)
	if err != nil {
		return fmt.Errorf("load status category map: %w", err)
	}
	result := workflowmetrics.Compute(chain, categoryOf)
	result.Apply(wi)
	return t.WorkItemRepo.BulkUpdate(ctx, []*domain.WorkItem{wi})
}

// --- field projection helpers -----------------------------------------

func fieldString(f map[string]any, key string) string {
	s, _ := f[key].(string)
	return s
}

func fieldSubObjectID(f map[string]any, key string) string {
	obj, _ := f[key].(map[string]any)
	if obj == nil {
		return ""
	}
	switch id := obj["id"].(type) {
	case string:
		return id
	case float64:
		return trimFloat(id)
	default:
		return ""
	}
}

func fieldSubObjectString(f map[string]any, key, sub string) string {
	obj, _ := f[key].(map[string]any)
	if obj == nil {
		return ""
	}
	s, _ := obj[sub].(string)
	return s
}

func fieldLabels(f map[string]any) []string {
	raw, _ := f["labels"].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// jiraTimeLayout is the timestamp format the provider's REST API emits
// (e.g. "2024-03-01T09:15:00.000-0700").
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

func parseJiraTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(jiraTimeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func fieldTime(f map[string]any, key string) time.Time {
	s, _ := f[key].(string)
	return parseJiraTime(s)
}

// descriptionText flattens either a plain string or an Atlassian Document
// Format body into a readable string by concatenating its text nodes.
func descriptionText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		var sb strings.Builder
		walkADF(val, &sb)
		return strings.TrimSpace(sb.String())
	default:
		return ""
	}
}

func walkADF(node any, sb *strings.Builder) {
	switch n := node.(type) {
	case map[string]any:
		if text, ok := n["text"].(string); ok && text != "" {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
		if content, ok := n["content"].([]any); ok {
			for _, c := range content {
				walkADF(c, sb)
			}
		}
	case []any:
		for _, c := range n {
			walkADF(c, sb)
		}
	}
}

// sprintEntry is one parsed sprint reference off a mapped sprints field,
// in either the structured (Jira Cloud) or legacy greenhopper-string form.
type sprintEntry struct {
	ExternalID string
	BoardID    string
	Name       string
	State      string
}

var legacySprintFieldRe = regexp.MustCompile(`(\w+)=([^,\]]*)`)

// parseSprintEntries implements the structured-or-legacy sprint field
// decode the mapped sprints value can arrive in (spec.md §4.9.3).
func parseSprintEntries(v any) []sprintEntry {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}

	entries := make([]sprintEntry, 0, len(arr))
	for _, item := range arr {
		switch t := item.(type) {
		case map[string]any:
			id := ""
			switch idv := t["id"].(type) {
			case string:
				id = idv
			case float64:
				id = trimFloat(idv)
			}
			if id == "" {
				continue
			}
			boardID := ""
			switch b := t["boardId"].(type) {
			case float64:
				boardID = trimFloat(b)
			case string:
				boardID = b
			}
			name, _ := t["name"].(string)
			state, _ := t["state"].(string)
			entries = append(entries, sprintEntry{ExternalID: id, BoardID: boardID, Name: name, State: state})
		case string:
			fields := map[string]string{}
			for _, m := range legacySprintFieldRe.FindAllStringSubmatch(t, -1) {
				fields[m[1]] = m[2]
			}
			if fields["id"] == "" {
				continue
			}
			entries = append(entries, sprintEntry{ExternalID: fields["id"], BoardID: fields["boardId"], Name: fields["name"], State: fields["state"]})
		}
	}
	return entries
}
