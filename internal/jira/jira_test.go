package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/p-blackswan/progress-sync/internal/errors"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, BasicAuth{Email: "bot@example.com", Token: "secret"}, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, server
}

func TestClient_GetIssue(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/rest/api/3/issue/PLAT-123")
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)
		fmt.Fprint(w, `{
			"key": "PLAT-123",
			"fields": {
				"summary": "Test issue",
				"status": {"name": "In Review", "statusCategory": {"key": "indeterminate", "name": "In Progress"}},
				"issuetype": {"name": "Story", "subtask": false},
				"customfield_10016": 5
			}
		}`)
	})

	issue, err := client.GetIssue(context.Background(), "PLAT-123", []string{"summary", "status"})
	require.NoError(t, err)
	assert.Equal(t, "PLAT-123", issue.Key)
	assert.Equal(t, "Test issue", issue.Fields.Summary)
	assert.Equal(t, "indeterminate", issue.Fields.Status.Category.Key)

	points := issue.StoryPoints([]string{"customfield_10016"})
	require.NotNil(t, points)
	assert.Equal(t, 5.0, *points)
}

func TestClient_GetIssue_NotFound(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorMessages": ["Issue does not exist"]}`)
	})

	_, err := client.GetIssue(context.Background(), "GONE-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestClient_GetIssue_RateLimitedCarriesRetryAfter(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetIssue(context.Background(), "PLAT-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrRateLimit)

	hint, ok := serrors.RetryAfterHint(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, hint)
}

func TestClient_SearchIssues_Paginates(t *testing.T) {
	calls := 0
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req struct {
			StartAt int `json:"startAt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls++

		if req.StartAt == 0 {
			fmt.Fprint(w, `{"total": 3, "startAt": 0, "issues": [{"key": "PLAT-1"}, {"key": "PLAT-2"}]}`)
			return
		}
		fmt.Fprint(w, `{"total": 3, "startAt": 2, "issues": [{"key": "PLAT-3"}]}`)
	})

	issues, err := client.SearchIssues(context.Background(), "project = PLAT", []string{"status"})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, "PLAT-3", issues[2].Key)
	assert.Equal(t, 2, calls)
}

func TestClient_UpdateIssueFields(t *testing.T) {
	var got map[string]map[string]interface{}
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateIssueFields(context.Background(), "PLAT-123", map[string]interface{}{
		"duedate":           "2024-05-01",
		"customfield_10015": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", got["fields"]["duedate"])
	assert.Nil(t, got["fields"]["customfield_10015"])
}

func TestIssue_StoryPoints(t *testing.T) {
	mkIssue := func(raw string) Issue {
		var issue Issue
		require.NoError(t, json.Unmarshal([]byte(`{"key":"X-1","fields":`+raw+`}`), &issue))
		return issue
	}
	ids := []string{"customfield_1", "customfield_2"}

	points := mkIssue(`{"customfield_1": null, "customfield_2": 3.5}`).StoryPoints(ids)
	require.NotNil(t, points)
	assert.Equal(t, 3.5, *points)

	points = mkIssue(`{"customfield_1": "8"}`).StoryPoints(ids)
	require.NotNil(t, points)
	assert.Equal(t, 8.0, *points)

	// Malformed or negative estimates are treated as absent.
	assert.Nil(t, mkIssue(`{"customfield_1": "large"}`).StoryPoints(ids))
	assert.Nil(t, mkIssue(`{"customfield_1": -2}`).StoryPoints(ids))
	assert.Nil(t, mkIssue(`{}`).StoryPoints(ids))
}

func TestResolveFieldIDs(t *testing.T) {
	fields := []Field{
		{ID: "customfield_10016", Name: "Story Points"},
		{ID: "customfield_10026", Name: "Story point estimate"},
		{ID: "customfield_10014", Name: "Epic Link"},
		{ID: "duedate", Name: "Due date"},
	}

	ids := ResolveFieldIDs(fields)
	assert.Equal(t, []string{"customfield_10016", "customfield_10026"}, ids.StoryPoints)
	assert.Equal(t, "customfield_10014", ids.EpicLink)
}

func TestResolveDateField(t *testing.T) {
	fields := []Field{
		{ID: "duedate", Name: "Due date"},
		{ID: "customfield_10015", Name: "Start date"},
	}

	assert.Equal(t, "customfield_10015", ResolveDateField(fields, "Start date"))
	assert.Equal(t, "customfield_10015", ResolveDateField(fields, "start DATE"))
	assert.Equal(t, "duedate", ResolveDateField(fields, "Due date"))
	assert.Equal(t, "customfield_99999", ResolveDateField(fields, "customfield_99999"))
	assert.Equal(t, "duedate", ResolveDateField(fields, "duedate"))
	assert.Equal(t, "", ResolveDateField(fields, "No Such Field"))
	assert.Equal(t, "", ResolveDateField(fields, ""))
}
