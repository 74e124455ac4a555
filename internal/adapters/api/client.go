// Package api is the REST client for the dashboard backend's read surface.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// Client fetches job snapshots and log history. It implements ports.JobAPI.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetHeader("Accept", "application/json")
	c.SetTimeout(30 * time.Second)
	return &Client{http: c}
}

type jobsResponse struct {
	Jobs []domain.Job `json:"jobs"`
}

type logsResponse struct {
	Logs []domain.LogEntry `json:"logs"`
}

// Jobs fetches the point-in-time snapshot for a range.
func (c *Client) Jobs(ctx context.Context, rng string) ([]domain.Job, error) {
	var out jobsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("range", rng).
		SetResult(&out).
		Get("/api/jobs")
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch jobs: backend returned %s", resp.Status())
	}
	return out.Jobs, nil
}

// JobLogs fetches a job's history, oldest first. limit <= 0 fetches all.
func (c *Client) JobLogs(ctx context.Context, id int64, limit, offset int) ([]domain.LogEntry, error) {
	var out logsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetQueryParam("offset", fmt.Sprintf("%d", offset)).
		SetResult(&out).
		Get(fmt.Sprintf("/api/jobs/%d/logs", id))
	if err != nil {
		return nil, fmt.Errorf("fetch logs for job %d: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch logs for job %d: backend returned %s", id, resp.Status())
	}
	return out.Logs, nil
}
