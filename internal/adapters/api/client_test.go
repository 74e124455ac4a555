package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

func TestJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs", r.URL.Path)
		assert.Equal(t, "7d", r.URL.Query().Get("range"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobs":[
			{"id":1,"job_name":"patch","scope":"web01,web02","status":"running","progress":0.5,"start_time":"2026-08-27T10:00:00Z"},
			{"id":2,"job_name":"backup","scope":["db01"],"status":"success","progress":100}
		]}`))
	}))
	defer srv.Close()

	jobs, err := New(srv.URL).Jobs(context.Background(), "7d")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.ScopeList{"web01", "web02"}, jobs[0].Scope)
	assert.Equal(t, 50, domain.NormalizeProgress(string(jobs[0].Progress)))
	assert.Equal(t, domain.ScopeList{"db01"}, jobs[1].Scope)
}

func TestJobsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Jobs(context.Background(), "24h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestJobLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/7/logs", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"logs":[{"ts":"2026-08-27T10:00:00Z","level":"info","message":"started"}]}`))
	}))
	defer srv.Close()

	logs, err := New(srv.URL).JobLogs(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "started", logs[0].Message)
}

func TestJobLogsNetworkFailure(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	_, err := c.JobLogs(context.Background(), 7, 0, 0)
	require.Error(t, err)
}
