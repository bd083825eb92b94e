package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
)

var testCreds = domain.Credentials{Username: "bot@example.test", Token: "secret"}

func TestClient_SearchIssues_TokenPagination(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/3/search/jql", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "project = P", body["jql"])
		assert.Contains(t, body["expand"], "changelog")

		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			assert.Nil(t, body["nextPageToken"])
			w.Write([]byte(`{"nextPageToken": "page2", "issues": [{"id": "1"}, {"id": "2"}]}`))
			return
		}
		assert.Equal(t, "page2", body["nextPageToken"])
		w.Write([]byte(`{"issues": [{"id": "3"}]}`))
	}))
	defer srv.Close()

	c := New()
	page1, err := c.SearchIssues(context.Background(), testCreds, srv.URL, "project = P", "", 50)
	require.NoError(t, err)
	assert.False(t, page1.IsLast)
	assert.Equal(t, "page2", page1.NextPageToken)

	page2, err := c.SearchIssues(context.Background(), testCreds, srv.URL, "project = P", page1.NextPageToken, 50)
	require.NoError(t, err)
	assert.True(t, page2.IsLast)
	assert.Empty(t, page2.NextPageToken)
}

func TestClient_BasicAuthSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.test", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`{"values": []}`))
	}))
	defer srv.Close()

	_, err := New().ProjectsWithIssueTypes(context.Background(), testCreds, srv.URL)
	require.NoError(t, err)
}

func TestClient_NotFoundIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	body, err := New().DevStatus(context.Background(), testCreds, srv.URL, "100")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestClient_RetriesTransient5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"values": [{"id": "10"}]}`))
	}))
	defer srv.Close()

	body, err := New().ProjectsWithIssueTypes(context.Background(), testCreds, srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"10"`)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_ExhaustedRetriesSurfaceError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New().ProjectsWithIssueTypes(context.Background(), testCreds, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestClient_RateLimitSurfacedWithoutRetry is the provider half of spec
// scenario S3: a 429 must come back as a RateLimitError carrying the reset
// time, after exactly one attempt.
func TestClient_RateLimitSurfacedWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New().ProjectsWithIssueTypes(context.Background(), testCreds, srv.URL)
	require.Error(t, err)

	var rl *port.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.WithinDuration(t, time.Now().Add(120*time.Second), rl.ResetAt, 5*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RateLimitHTTPDateResetAt(t *testing.T) {
	reset := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", reset.Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New().ApproximateCount(context.Background(), testCreds, srv.URL, "project = P")
	require.Error(t, err)

	var rl *port.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.True(t, rl.ResetAt.Equal(reset))
}

func TestClient_Client4xxIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorMessages": ["bad jql"]}`))
	}))
	defer srv.Close()

	_, err := New().ApproximateCount(context.Background(), testCreds, srv.URL, "broken ((")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ApproximateCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/3/search/approximate-count", r.URL.Path)
		w.Write([]byte(`{"count": 1234}`))
	}))
	defer srv.Close()

	count, err := New().ApproximateCount(context.Background(), testCreds, srv.URL, "project = P")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), count)
}

func TestClient_DevStatusURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/dev-status/latest/issue/detail", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("issueId"))
		assert.Equal(t, "GitHub", r.URL.Query().Get("applicationType"))
		assert.Equal(t, "branch", r.URL.Query().Get("dataType"))
		w.Write([]byte(`{"detail": []}`))
	}))
	defer srv.Close()

	body, err := New().DevStatus(context.Background(), testCreds, srv.URL, "100")
	require.NoError(t, err)
	assert.Contains(t, string(body), "detail")
}
