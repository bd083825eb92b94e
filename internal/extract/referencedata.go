package extract

import (
	"context"
	"encoding/json"
	"fmt"
)

// jiraProjectsResponse is the shape of the projects-with-issue-types page;
// the reference-data transformer accepts both "issuetypes" and
// "issueTypes" casing (Open Question #2), but extraction itself only
// needs to know whether the page was empty.
type jiraProjectsResponse struct {
	Values []json.RawMessage `json:"values"`
}

// ExtractReferenceData implements C5: fetches projects-with-issue-types,
// then per-project statuses, in that order, persisting one
// RawExtractionData row per unit and publishing one transform message per
// unit (spec.md §4.5).
func (e *Extractor) ExtractReferenceData(ctx context.Context, run Run) error {
	projectsBody, err := e.Provider.ProjectsWithIssueTypes(ctx, run.Creds, run.BaseURL)
	if err != nil {
		return fmt.Errorf("fetch projects with issue types: %w", err)
	}

	var parsed jiraProjectsResponse
	if len(projectsBody) > 0 {
		if err := json.Unmarshal(projectsBody, &parsed); err != nil {
			return fmt.Errorf("decode projects response: %w", err)
		}
	}

	if len(parsed.Values) == 0 {
		// Empty issue-type response -> flag completion, not silent drop
		// (spec.md §4.5's edge policy).
		return e.publishFlag(ctx, run, "jira_projects_and_issue_types", true, true, false)
	}

	if err := e.persistAndPublish(ctx, run, "reference_data", "jira_projects_and_issue_types", json.RawMessage(projectsBody), "", true, true, false); err != nil {
		return err
	}

	var projectIDs []string
	for _, raw := range parsed.Values {
		var proj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &proj); err == nil && proj.ID != "" {
			projectIDs = append(projectIDs, proj.ID)
		}
	}

	if len(projectIDs) == 0 {
		return e.publishFlag(ctx, run, "jira_statuses_and_relationships", true, true, true)
	}

	for i, projectID := range projectIDs {
		statusesBody, err := e.Provider.StatusesByProject(ctx, run.Creds, run.BaseURL, projectID)
		if err != nil {
			return fmt.Errorf("fetch statuses for project %s: %w", projectID, err)
		}
		last := i == len(projectIDs)-1
		if len(statusesBody) == 0 {
			if err := e.publishFlag(ctx, run, "jira_statuses_and_relationships", i == 0, last, last); err != nil {
				return err
			}
			continue
		}
		payload := struct {
			ProjectID string          `json:"project_id"`
			Statuses  json.RawMessage `json:"statuses"`
		}{ProjectID: projectID, Statuses: statusesBody}
		if err := e.persistAndPublish(ctx, run, "reference_data", "jira_statuses_and_relationships", payload, projectID, i == 0, last, last); err != nil {
			return err
		}
	}
	return nil
}

// ExtractCustomFields implements C5's optional, user-initiated step: the
// custom-field catalog via createmeta / special-field discovery via
// field-search (spec.md §4.5.3). Run with execution_mode=custom_query.
func (e *Extractor) ExtractCustomFields(ctx context.Context, run Run) error {
	body, err := e.Provider.CustomFields(ctx, run.Creds, run.BaseURL)
	if err != nil {
		return fmt.Errorf("fetch custom fields: %w", err)
	}
	if len(body) == 0 {
		return e.publishFlag(ctx, run, "jira_custom_fields", true, true, true)
	}
	return e.persistAndPublish(ctx, run, "reference_data", "jira_custom_fields", json.RawMessage(body), "", true, true, true)
}
