package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// DevStatusTransformer implements C9.4: walks a dev-status payload's pull
// requests and inserts new WorkItemPrLink rows.
type DevStatusTransformer struct {
	RawRepo      port.RawExtractionRepository
	WorkItemRepo port.WorkItemRepository
	PrLinkRepo   port.PrLinkRepository
	Publisher    port.QueuePublisher
	// Metrics is optional; when set, inserted PR links land in the
	// operational metrics store.
	Metrics port.MetricService
}

// NewDevStatusTransformer builds a DevStatusTransformer.
func NewDevStatusTransformer(rawRepo port.RawExtractionRepository, workItemRepo port.WorkItemRepository, prLinkRepo port.PrLinkRepository, publisher port.QueuePublisher) *DevStatusTransformer {
	return &DevStatusTransformer{RawRepo: rawRepo, WorkItemRepo: workItemRepo, PrLinkRepo: prLinkRepo, Publisher: publisher}
}

type devStatusPayload struct {
	IssueID   string          `json:"issue_id"`
	IssueKey  string          `json:"issue_key"`
	DevStatus json.RawMessage `json:"dev_status"`
}

type devStatusDetail struct {
	PullRequests []jiraPullRequest `json:"pullRequests"`
}

// jiraPullRequest is one pull-request entry under dev_status.detail[*], in
// the shape the GitHub/Bitbucket dev-status integration returns it.
type jiraPullRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	Status         string `json:"status"`
	Number         *int   `json:"number"`
	RepositoryID   string `json:"repositoryId"`
	RepositoryName string `json:"repositoryName"`
	RepositoryURL  string `json:"repositoryUrl"`
	Source         struct {
		Branch string `json:"branch"`
	} `json:"source"`
	LastCommit struct {
		ID string `json:"id"`
	} `json:"lastCommit"`
}

var (
	digitsRe  = regexp.MustCompile(`\d+`)
	pullURLRe = regexp.MustCompile(`/pull/(\d+)`)
)

// resolvePRNumber implements §4.9.4's fallback chain: explicit field,
// integer id, regex digits on id/name, then /pull/(\d+) in the URL.
func resolvePRNumber(pr jiraPullRequest) (int, bool) {
	if pr.Number != nil {
		return *pr.Number, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(pr.ID)); err == nil {
		return n, true
	}
	if m := digitsRe.FindString(pr.ID); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}
	if m := digitsRe.FindString(pr.Name); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}
	if m := pullURLRe.FindStringSubmatch(pr.URL); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// repoFullName prefers the explicit repository name, falling back to the
// "owner/repo" suffix of its URL.
func repoFullName(pr jiraPullRequest) string {
	if pr.RepositoryName != "" {
		return pr.RepositoryName
	}
	u := strings.TrimSuffix(pr.RepositoryURL, "/")
	if i := strings.LastIndex(u, "://"); i != -1 {
		u = u[i+3:]
	}
	parts := strings.Split(u, "/")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return ""
}

func prLinkKey(externalRepoID string, prNumber int) string {
	return fmt.Sprintf("%s/%d", externalRepoID, prNumber)
}

// Handle implements §4.9.4: insert new PR links only, emit one embedding
// message per inserted link, or forward the flag envelope when nothing
// new was found (including when the payload has no matching work item).
func (t *DevStatusTransformer) Handle(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	body, err := loadRaw(ctx, t.RawRepo, env)
	if err != nil {
		return err
	}

	var payload devStatusPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("decode dev status payload: %w", err)
		}
	}
	if payload.IssueID == "" {
		if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
			return err
		}
		return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
	}

	workItems, err := t.WorkItemRepo.FindByExternalIDs(ctx, env.IntegrationID, []string{payload.IssueID})
	if err != nil {
		return fmt.Errorf("look up work item for dev status: %w", err)
	}
	wi, ok := workItems[payload.IssueID]
	if !ok {
		slog.WarnContext(ctx, "dev status for unknown work item", "issue_id", payload.IssueID, "job_id", env.JobID)
		if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
			return err
		}
		return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
	}

	var details []devStatusDetail
	if len(payload.DevStatus) > 0 {
		var resp struct {
			Detail []devStatusDetail `json:"detail"`
		}
		if err := json.Unmarshal(payload.DevStatus, &resp); err != nil {
			return fmt.Errorf("decode dev status detail: %w", err)
		}
		details = resp.Detail
	}

	existing, err := t.PrLinkRepo.ExistingKeys(ctx, wi.ID)
	if err != nil {
		return fmt.Errorf("look up existing pr links: %w", err)
	}

	var links []*domain.WorkItemPrLink
	for _, d := range details {
		for _, pr := range d.PullRequests {
			if pr.RepositoryID == "" {
				continue
			}
			fullName := repoFullName(pr)
			if fullName == "" {
				continue
			}
			num, ok := resolvePRNumber(pr)
			if !ok {
				slog.WarnContext(ctx, "dropping pr link with unresolvable pr number", "repository_id", pr.RepositoryID, "work_item_id", wi.ID)
				continue
			}
			key := prLinkKey(pr.RepositoryID, num)
			if existing[key] {
				continue
			}
			existing[key] = true

			link := &domain.WorkItemPrLink{
				ID: uuid.New(), TenantID: env.TenantID, IntegrationID: env.IntegrationID, WorkItemID: wi.ID,
				ExternalRepoID: pr.RepositoryID, RepoFullName: fullName, PullRequestNumber: num,
				PrStatus: pr.Status, Active: true,
			}
			if pr.Source.Branch != "" {
				b := pr.Source.Branch
				link.BranchName = &b
			}
			if pr.LastCommit.ID != "" {
				sha := pr.LastCommit.ID
				link.CommitSHA = &sha
			}
			links = append(links, link)
		}
	}

	if len(links) == 0 {
		if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
			return err
		}
		return t.Publisher.PublishEmbeddingJob(ctx, tier, env)
	}

	if err := t.PrLinkRepo.BulkInsert(ctx, links); err != nil {
		return fmt.Errorf("insert pr links: %w", err)
	}
	if err := markRawCompleted(ctx, t.RawRepo, env); err != nil {
		return err
	}
	recordCount(ctx, t.Metrics, env, domain.MetricPrLinksCreated, float64(len(links)))

	for i, link := range links {
		extID := fmt.Sprintf("%s/%d", link.ExternalRepoID, link.PullRequestNumber)
		out := &envelope.Envelope{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID, JobID: env.JobID,
			Token: env.Token, Type: TypeDevStatus, Provider: env.Provider,
			ExternalID:  &extID,
			FirstItem:   env.FirstItem && i == 0,
			LastItem:    env.LastItem && i == len(links)-1,
			LastJobItem: env.LastJobItem && i == len(links)-1,
		}
		if err := t.Publisher.PublishEmbeddingJob(ctx, tier, out); err != nil {
			return err
		}
	}
	return nil
}
