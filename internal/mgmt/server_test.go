package mgmt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/progress-sync/internal/engine"
	"github.com/p-blackswan/progress-sync/internal/health"
	"github.com/p-blackswan/progress-sync/internal/metrics"
)

func newTestServer(t *testing.T, checker *health.Checker) *Server {
	t.Helper()
	if checker == nil {
		checker = health.NewChecker(zerolog.Nop())
	}
	return NewServer(":0", checker, metrics.New(), zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t, nil)
	resp := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")
}

func TestReadiness_Healthy(t *testing.T) {
	checker := health.NewChecker(zerolog.Nop())
	checker.Register("jira", func(ctx context.Context) health.Status { return health.StatusOK })

	s := newTestServer(t, checker)
	resp := doRequest(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadiness_DependencyDown(t *testing.T) {
	checker := health.NewChecker(zerolog.Nop())
	checker.Register("jira", func(ctx context.Context) health.Status { return health.StatusOK })
	checker.Register("smartsheet", func(ctx context.Context) health.Status { return health.StatusDown })

	s := newTestServer(t, checker)
	resp := doRequest(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var results map[string]health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	assert.Equal(t, health.StatusDown, results["smartsheet"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	resp := doRequest(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLastRun(t *testing.T) {
	s := newTestServer(t, nil)

	resp := doRequest(t, s, http.MethodGet, "/api/v1/runs/last")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.SetLastRun(&engine.Summary{RunID: "run-1", Rows: 4, Applied: 2})

	resp = doRequest(t, s, http.MethodGet, "/api/v1/runs/last")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sum engine.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 2, sum.Applied)
}
