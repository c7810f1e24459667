package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	executePath     = "/v1/execute/run"
	maxErrorExcerpt = 512
)

// RunnerClient submits tests to the external execution service.
type RunnerClient interface {
	// Execute runs the test described by req and returns the runner's answer.
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResponse, error)
}

// HTTPRunnerClient is an HTTP implementation of the RunnerClient interface.
type HTTPRunnerClient struct {
	url    string
	client *http.Client
}

// NewHTTPRunnerClient creates a new HTTPRunnerClient. A zero timeout waits
// for the runner indefinitely.
func NewHTTPRunnerClient(url string, timeout time.Duration) *HTTPRunnerClient {
	return &HTTPRunnerClient{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Execute posts the payload to /v1/execute/run.
func (c *HTTPRunnerClient) Execute(ctx context.Context, payload ExecutionRequest) (*ExecutionResponse, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+executePath, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorExcerpt))
		return nil, fmt.Errorf("runner rejected test: status code %d: %s",
			resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var out ExecutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &out, nil
}
