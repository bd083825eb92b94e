package extract

import (
	"context"
	"encoding/json"
	"fmt"
)

// devStatusResponse is the shape of the dev-status detail endpoint's body,
// just enough to decide has_useful_dev_status_data (spec.md §4.7); full
// pull-request parsing is the transformer's job (§4.9.4).
type devStatusResponse struct {
	Detail []struct {
		Repositories []json.RawMessage `json:"repositories"`
		PullRequests []json.RawMessage `json:"pullRequests"`
		Branches     []json.RawMessage `json:"branches"`
	} `json:"detail"`
}

func (r devStatusResponse) hasUsefulData() bool {
	for _, d := range r.Detail {
		if len(d.Repositories) > 0 || len(d.PullRequests) > 0 || len(d.Branches) > 0 {
			return true
		}
	}
	return false
}

// ExtractDevStatus implements C7: for each issue flagged development=true,
// fetches the dev-status payload. A response with no useful data emits a
// flag/completion message without persisting; otherwise one
// RawExtractionData row of {issue_id, issue_key, dev_status} is persisted
// and one transform message published. The final emission (dev-status or,
// if issues is empty, a standalone flag) carries last_job_item=true
// (spec.md §4.7).
//
// On a RateLimitError from the provider, ExtractDevStatus stops
// immediately and returns the error wrapped with %w, so the caller (the
// sync cycle activity) can detect it with errors.As and apply spec.md §4.7's rate-limit policy: mark
// RATE_LIMIT_REACHED, skip retry and DLQ.
func (e *Extractor) ExtractDevStatus(ctx context.Context, run Run, issues []IssueRef) error {
	if len(issues) == 0 {
		return e.publishFlag(ctx, run, "jira_dev_status", true, true, true)
	}

	for i, issue := range issues {
		body, err := e.Provider.DevStatus(ctx, run.Creds, run.BaseURL, issue.ExternalID)
		if err != nil {
			return fmt.Errorf("fetch dev status for issue %s: %w", issue.ExternalID, err)
		}

		last := i == len(issues)-1
		first := i == 0

		var parsed devStatusResponse
		if len(body) > 0 {
			if err := json.Unmarshal(body, &parsed); err != nil {
				return fmt.Errorf("decode dev status for issue %s: %w", issue.ExternalID, err)
			}
		}
		if !parsed.hasUsefulData() {
			if err := e.publishFlag(ctx, run, "jira_dev_status", first, last, last); err != nil {
				return err
			}
			continue
		}

		payload := struct {
			IssueID   string          `json:"issue_id"`
			IssueKey  string          `json:"issue_key"`
			DevStatus json.RawMessage `json:"dev_status"`
		}{IssueID: issue.ExternalID, IssueKey: issue.Key, DevStatus: body}

		if err := e.persistAndPublish(ctx, run, "dev_status", "jira_dev_status", payload, issue.ExternalID, first, last, last); err != nil {
			return err
		}
	}
	return nil
}
