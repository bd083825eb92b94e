// Package provider implements C4, the paginated, retrying HTTP client to
// the external issue-tracking provider. Grounded on the teacher's own
// instinct to reach for cenkalti/backoff/v4 (already in its go.mod) for
// retry, composed with sony/gobreaker (pulled from the jordigilh-kubernaut
// retrieval pack) to track and trip on sustained rate-limit/5xx state so a
// struggling integration doesn't keep hammering a provider that is already
// failing it.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/pkg/observability"
)

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
)

// Client implements port.ProviderClient against a Jira-shaped REST API
// (spec.md §6's version-stable endpoint subset). It is stateless: every
// call takes the Integration's decrypted Credentials, so no per-worker
// credential cache exists (spec.md §5).
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New builds a Client with a shared circuit breaker tripping after
// repeated provider failures, so a worker pool stops hammering a provider
// that is already down instead of burning its retry budget per message.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "provider-client",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
}

// ProjectsWithIssueTypes implements endpoint (b): GET
// /rest/api/3/project/search?expand=issueTypes.
func (c *Client) ProjectsWithIssueTypes(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error) {
	return c.get(ctx, creds, baseURL+"/rest/api/3/project/search?expand=issueTypes")
}

// StatusesByProject implements endpoint (b): GET /rest/api/3/project/{id}/statuses.
func (c *Client) StatusesByProject(ctx context.Context, creds domain.Credentials, baseURL, projectID string) ([]byte, error) {
	return c.get(ctx, creds, fmt.Sprintf("%s/rest/api/3/project/%s/statuses", baseURL, projectID))
}

// CustomFields implements endpoint (d): GET /rest/api/3/field/search, the
// special-field discovery call (spec.md §4.5.3).
func (c *Client) CustomFields(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error) {
	return c.get(ctx, creds, baseURL+"/rest/api/3/field/search")
}

// SearchIssues implements endpoint (e): POST /rest/api/3/search/jql with
// expand=changelog, token-based pagination (spec.md §4.4).
func (c *Client) SearchIssues(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
	body := map[string]any{
		"jql":        jql,
		"maxResults": maxResults,
		"fields":     []string{"*all"},
		"expand":     []string{"changelog"},
	}
	if pageToken != "" {
		body["nextPageToken"] = pageToken
	}
	raw, err := c.post(ctx, creds, baseURL+"/rest/api/3/search/jql", body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		NextPageToken string            `json:"nextPageToken"`
		Issues        []json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return &port.ProviderPage{
		Body:          raw,
		NextPageToken: parsed.NextPageToken,
		IsLast:        parsed.NextPageToken == "",
	}, nil
}

// ApproximateCount implements endpoint (f): POST
// /rest/api/3/search/approximate-count.
func (c *Client) ApproximateCount(ctx context.Context, creds domain.Credentials, baseURL, jql string) (int64, error) {
	raw, err := c.post(ctx, creds, baseURL+"/rest/api/3/search/approximate-count", map[string]any{"jql": jql})
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("decode approximate-count response: %w", err)
	}
	return parsed.Count, nil
}

// DevStatus implements endpoint (g): GET
// /rest/dev-status/latest/issue/detail?issueId=...&applicationType=GitHub&dataType=branch.
func (c *Client) DevStatus(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/dev-status/latest/issue/detail?issueId=%s&applicationType=GitHub&dataType=branch", baseURL, issueID)
	return c.get(ctx, creds, url)
}

// get issues one authenticated GET with retry/breaker/404-as-empty
// semantics applied.
func (c *Client) get(ctx context.Context, creds domain.Credentials, url string) ([]byte, error) {
	return c.doWithPolicy(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		authenticate(req, creds)
		return c.httpClient.Do(req)
	})
}

// post issues one authenticated POST with a JSON body.
func (c *Client) post(ctx context.Context, creds domain.Credentials, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.doWithPolicy(ctx, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		authenticate(req, creds)
		return c.httpClient.Do(req)
	})
}

func authenticate(req *http.Request, creds domain.Credentials) {
	if creds.Token != "" {
		req.SetBasicAuth(creds.Username, creds.Token)
	}
}

// doWithPolicy applies C4's retry policy: 3 attempts with exponential
// backoff (2^n seconds) on transient failures (5xx, connection errors);
// 404 returns an empty result, not an error; 429 is surfaced as a
// RateLimitError without retry, per spec.md §4.4. Every attempt runs
// through the circuit breaker, and an open breaker ends the loop at once,
// so a provider already tripped fails fast without consuming the retry
// budget.
func (c *Client) doWithPolicy(ctx context.Context, do func(context.Context) (*http.Response, error)) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "provider.request")
	defer span.End()

	bo := backoff.WithContext(exponentialBackoff(), ctx)

	var result []byte
	var rateLimitErr *port.RateLimitError

	op := func() error {
		raw, err := c.breaker.Execute(func() (any, error) {
			resp, err := do(ctx)
			if err != nil {
				return nil, err // connection error: retryable
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}

			requests := observability.GetMetrics().ProviderRequestsTotal
			switch {
			case resp.StatusCode == http.StatusNotFound:
				requests.WithLabelValues("not_found").Inc()
				return []byte(nil), nil // 404 -> empty result, not an error
			case resp.StatusCode == http.StatusTooManyRequests:
				requests.WithLabelValues("rate_limited").Inc()
				return nil, backoff.Permanent(rateLimitFromResponse(resp))
			case resp.StatusCode >= 500:
				requests.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
			case resp.StatusCode >= 400:
				requests.WithLabelValues("error").Inc()
				return nil, backoff.Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body))
			default:
				requests.WithLabelValues("ok").Inc()
				return body, nil
			}
		})
		if err != nil {
			if rle, ok := asRateLimitError(err); ok {
				rateLimitErr = rle
				return backoff.Permanent(err)
			}
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		if b, ok := raw.([]byte); ok {
			result = b
		}
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		if rateLimitErr != nil {
			return nil, rateLimitErr
		}
		return nil, err
	}
	return result, nil
}

func exponentialBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second // 2^n seconds per spec.md §4.4
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

func rateLimitFromResponse(resp *http.Response) *port.RateLimitError {
	resetAt := time.Now().Add(time.Minute)
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			resetAt = time.Now().Add(time.Duration(secs) * time.Second)
		} else if t, err := http.ParseTime(retryAfter); err == nil {
			resetAt = t
		}
	}
	return &port.RateLimitError{ResetAt: resetAt}
}

func asRateLimitError(err error) (*port.RateLimitError, bool) {
	rle, ok := err.(*port.RateLimitError)
	if ok {
		return rle, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return asRateLimitError(u.Unwrap())
	}
	return nil, false
}
