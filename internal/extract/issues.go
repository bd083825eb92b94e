package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const defaultPageSize = 100

// IssueRef names one extracted issue for the dev-status follow-up fan-out.
type IssueRef struct {
	ExternalID string
	Key        string
}

// ExtractIssues implements C6: computes the effective JQL window, streams
// pages of issues with embedded changelog, and for each issue persists one
// RawExtractionData row and publishes one transform message (spec.md
// §4.6). deferLastJob must be true whenever this sync cycle also runs the
// Dev-Status Extractor afterward, since last_job_item is deferred until
// that fan-out completes; pass false when issues is the terminal step of
// the cycle (e.g. dev-status discovers no development=true issues).
//
// Returns the external ids of every extracted issue, so the caller can
// resolve which ones are flagged development=true (a transform-time
// column, spec.md §4.9.3) once the issue transformer has run, and hand
// that subset to ExtractDevStatus.
func (e *Extractor) ExtractIssues(ctx context.Context, run Run, baseSearchFilter string, startWindow time.Time, maxResults int, deferLastJob bool) ([]IssueRef, error) {
	if maxResults <= 0 {
		maxResults = defaultPageSize
	}
	jql := effectiveJQL(baseSearchFilter, startWindow)

	var all []IssueRef
	pageToken := ""
	firstEmitted := false

	for {
		page, err := e.Provider.SearchIssues(ctx, run.Creds, run.BaseURL, jql, pageToken, maxResults)
		if err != nil {
			return all, fmt.Errorf("search issues: %w", err)
		}

		var parsed struct {
			Issues []json.RawMessage `json:"issues"`
		}
		if len(page.Body) > 0 {
			if err := json.Unmarshal(page.Body, &parsed); err != nil {
				return all, fmt.Errorf("decode issue search page: %w", err)
			}
		}

		for i, raw := range parsed.Issues {
			var issue struct {
				ID  string `json:"id"`
				Key string `json:"key"`
			}
			if err := json.Unmarshal(raw, &issue); err != nil || issue.Key == "" {
				// Bad data (missing required key field): skip and log,
				// per spec.md §7. The extractor has no logger of its own
				// injected here; the caller's activity wrapper logs.
				continue
			}

			isLastOverall := page.IsLast && i == len(parsed.Issues)-1
			first := !firstEmitted
			firstEmitted = true
			lastJob := isLastOverall && !deferLastJob

			if err := e.persistAndPublish(ctx, run, "issue", "jira_issues_with_changelogs", json.RawMessage(raw), issue.ID, first, isLastOverall, lastJob); err != nil {
				return all, err
			}
			all = append(all, IssueRef{ExternalID: issue.ID, Key: issue.Key})
		}

		if page.IsLast || page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if len(all) == 0 {
		// Zero issues: still publish a flag completion message for the
		// step (spec.md §4.6).
		if err := e.publishFlag(ctx, run, "jira_issues_with_changelogs", true, true, !deferLastJob); err != nil {
			return all, err
		}
	}

	return all, nil
}
