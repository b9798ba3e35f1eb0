// internal/flow/client.go
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound indicates the engine knows no such execution.
var ErrNotFound = errors.New("execution not found")

// Client talks to an n8n-compatible workflow engine REST API.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewClient creates a client for baseURL (e.g. "http://localhost:5678").
// The public API prefix is appended if the URL does not already carry it.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	base := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(base, "/api/v1") {
		base += "/api/v1"
	}

	return &Client{
		base:   base,
		apiKey: apiKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("workflow engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine API %s: %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// ExecutionFilter narrows execution listings.
type ExecutionFilter struct {
	WorkflowID  string
	Status      string // "success", "error", "waiting"
	Limit       int
	IncludeData bool
}

// ListExecutions returns execution records matching the filter, most recent
// first, as the engine orders them.
func (c *Client) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]Execution, error) {
	query := url.Values{}
	if filter.WorkflowID != "" {
		query.Set("workflowId", filter.WorkflowID)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.IncludeData {
		query.Set("includeData", "true")
	}

	var payload struct {
		Data []Execution `json:"data"`
	}
	if err := c.get(ctx, "/executions", query, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// GetExecution fetches one execution, with its nested trace when
// includeData is set.
func (c *Client) GetExecution(ctx context.Context, id string, includeData bool) (Execution, error) {
	query := url.Values{}
	if includeData {
		query.Set("includeData", "true")
	}

	var exec Execution
	if err := c.get(ctx, "/executions/"+id, query, &exec); err != nil {
		return Execution{}, err
	}
	return exec, nil
}
