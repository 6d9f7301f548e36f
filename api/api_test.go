package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/api"
	"github.com/TFMV/reconcile/metrics"
)

func newServer(t *testing.T) *api.Server {
	t.Helper()
	s := api.NewServer(api.ServerOptions{Port: "5555"})
	require.NotNil(t, s)
	return s
}

func postCompare(t *testing.T, s *api.Server, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.GetApp().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// TestHealthEndpoint checks if the /health endpoint returns "OK"
func TestHealthEndpoint(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.GetApp().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))
}

type versionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Build   string `json:"build"`
	Time    string `json:"time"`
}

func TestVersionEndpoint(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	resp, err := s.GetApp().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var v versionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, api.ServiceName, v.Service)
	assert.NotEmpty(t, v.Version)
	assert.NotEmpty(t, v.Build)
	assert.NotEmpty(t, v.Time)
}

func TestCompareSample(t *testing.T) {
	s := newServer(t)
	resp := postCompare(t, s, `{"sample": "value-mismatch", "rows": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.CompareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, metrics.Diverged, out.Outcome)
	assert.Equal(t, 2, out.Summary.MismatchedValues)
	assert.Equal(t, 5, out.Summary.MatchedRows)
	require.NotNil(t, out.Report)
	assert.Len(t, out.Report.Mismatched, 2)
}

func TestCompareSampleCustomKeys(t *testing.T) {
	s := newServer(t)
	resp := postCompare(t, s, `{"sample": "identical", "keys": {"join_columns": ["id"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.CompareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "id", out.Summary.Keys)
	assert.Nil(t, out.Report)
}

func TestCompareErrors(t *testing.T) {
	s := api.NewServer(api.ServerOptions{AllowedRoots: []string{".", "/nonexistent"}})
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{"sample":`, http.StatusBadRequest},
		{"unknown sample", `{"sample": "missing"}`, http.StatusNotFound},
		{"unknown key column", `{"sample": "identical", "keys": {"join_columns": "nope"}}`, http.StatusUnprocessableEntity},
		{"bad key type", `{"sample": "identical", "keys": {"join_columns": 5}}`, http.StatusUnprocessableEntity},
		{"bad source", `{"legacy": {"type": "xml"}, "cloud": {"type": "csv", "path": "b.csv"}, "keys": {"join_columns": "id"}}`, http.StatusUnprocessableEntity},
		{"missing file", `{"legacy": {"type": "csv", "path": "/nonexistent/a.csv"}, "cloud": {"type": "csv", "path": "/nonexistent/b.csv"}, "keys": {"join_columns": "id"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postCompare(t, s, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCompareSourcePolicy(t *testing.T) {
	dir := t.TempDir()
	legacy := writeCSV(t, dir, "legacy.csv", "id,name\n1,a\n2,b\n")
	cloud := writeCSV(t, dir, "cloud.csv", "id,name\n1,a\n2,c\n")
	files := `{"legacy": {"type": "csv", "path": "` + legacy + `"}, "cloud": {"type": "csv", "path": "` + cloud + `"}, "keys": {"join_columns": "id"}}`
	escape := `{"legacy": {"type": "csv", "path": "` + filepath.Join(dir, "..", "other.csv") + `"}, "cloud": {"type": "csv", "path": "` + cloud + `"}, "keys": {"join_columns": "id"}}`
	database := `{"legacy": {"type": "postgres", "connection_string": "postgres://localhost/db", "table": "t"}, "cloud": {"type": "csv", "path": "` + cloud + `"}, "keys": {"join_columns": "id"}}`
	duck := `{"legacy": {"type": "duckdb", "path": "x.db", "query": "SELECT * FROM read_csv('/etc/passwd')"}, "cloud": {"type": "csv", "path": "` + cloud + `"}, "keys": {"join_columns": "id"}}`

	t.Run("no roots", func(t *testing.T) {
		s := newServer(t)
		resp := postCompare(t, s, files)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body["error"], "outside the allowed roots")
	})

	t.Run("inside root", func(t *testing.T) {
		s := api.NewServer(api.ServerOptions{AllowedRoots: []string{dir}})
		resp := postCompare(t, s, files)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out api.CompareResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 1, out.Summary.MismatchedValues)
	})

	t.Run("path escapes root", func(t *testing.T) {
		s := api.NewServer(api.ServerOptions{AllowedRoots: []string{dir}})
		assert.Equal(t, http.StatusForbidden, postCompare(t, s, escape).StatusCode)
	})

	t.Run("databases disabled", func(t *testing.T) {
		s := api.NewServer(api.ServerOptions{AllowedRoots: []string{dir}})
		assert.Equal(t, http.StatusForbidden, postCompare(t, s, database).StatusCode)
		assert.Equal(t, http.StatusForbidden, postCompare(t, s, duck).StatusCode)
	})

	t.Run("samples always allowed", func(t *testing.T) {
		s := newServer(t)
		assert.Equal(t, http.StatusOK, postCompare(t, s, `{"sample": "identical"}`).StatusCode)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	postCompare(t, s, `{"sample": "identical"}`)
	postCompare(t, s, `{"sample": "missing"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.GetApp().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap metrics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, int64(2), snap.Runs)
	assert.Equal(t, int64(1), snap.ByOutcome[metrics.Clean])
	assert.Equal(t, int64(1), snap.ByOutcome[metrics.Failed])
	require.NotNil(t, snap.LastRun)
	assert.Equal(t, metrics.Failed, snap.LastRun.Outcome)
}

func TestShutdown(t *testing.T) {
	s := newServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
