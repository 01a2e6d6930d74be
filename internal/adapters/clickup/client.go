// Package clickup implements the task tracker client against the ClickUp
// v2 REST API.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
)

// DefaultBaseURL is the public ClickUp API endpoint.
const DefaultBaseURL = "https://api.clickup.com/api/v2"

// Config captures the client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client talks to the ClickUp task API. A client without an API key is
// valid but unconfigured: Configured reports false and the polling sweep
// skips itself.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient builds a ClickUp API client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  hc,
	}
}

// Configured reports whether the client has credentials to operate.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// taskPayload mirrors the subset of the ClickUp task document we consume.
type taskPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status struct {
		Status string `json:"status"`
	} `json:"status"`
	Space struct {
		ID string `json:"id"`
	} `json:"space"`
}

func (p *taskPayload) toTask() *core.TrackerTask {
	return &core.TrackerTask{
		ID:      p.ID,
		Name:    p.Name,
		Status:  p.Status.Status,
		SpaceID: p.Space.ID,
	}
}

// GetTask fetches a task by id. A missing task returns nil, nil.
func (c *Client) GetTask(ctx context.Context, taskID string) (*core.TrackerTask, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id is required")
	}

	var payload taskPayload
	found, err := c.getJSON(ctx, "/task/"+url.PathEscape(taskID), &payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return payload.toTask(), nil
}

// ListTasks fetches one page of tasks in a list, closed tasks included.
func (c *Client) ListTasks(ctx context.Context, listID string, page int) ([]*core.TrackerTask, error) {
	if listID == "" {
		return nil, fmt.Errorf("list id is required")
	}

	path := "/list/" + url.PathEscape(listID) + "/task?page=" + strconv.Itoa(page) + "&include_closed=true"
	var payload struct {
		Tasks []taskPayload `json:"tasks"`
	}
	if _, err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}

	tasks := make([]*core.TrackerTask, 0, len(payload.Tasks))
	for i := range payload.Tasks {
		tasks = append(tasks, payload.Tasks[i].toTask())
	}
	return tasks, nil
}

// UpdateTaskStatus pushes a status label to the tracker.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	if taskID == "" {
		return fmt.Errorf("task id is required")
	}

	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// getJSON performs a GET and decodes the response. Returns found=false on 404.
func (c *Client) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("clickup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode clickup response: %w", err)
	}
	return true, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create clickup request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	return req, nil
}

func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("clickup API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
