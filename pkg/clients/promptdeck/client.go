// Package promptdeck is the typed HTTP client for the public PromptDeck
// API: executing published pipelines by endpoint slug and validating
// pipeline graphs server-side. Requests authenticate with an
// organization API key.
package promptdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the public PromptDeck API.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client with the given options applied over the
// defaults.
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// ExecutePipeline runs a published pipeline by its endpoint slug.
// Contract failures (unknown key, unresolvable slug) are reported in
// the response body with Success false, not as a Go error.
func (c *Client) ExecutePipeline(ctx context.Context, slug string, req ExecutePipelineRequest) (ExecutePipelineResponse, error) {
	var result ExecutePipelineResponse

	path := fmt.Sprintf("/api/v1/public/pipelines/%s/execute", url.PathEscape(slug))

	if err := c.doRequest(ctx, http.MethodPost, path, req, &result); err != nil {
		return ExecutePipelineResponse{}, err
	}

	return result, nil
}

// ValidateGraph validates a pipeline graph document server-side and
// returns the verdict with errors in discovery order.
func (c *Client) ValidateGraph(ctx context.Context, req ValidateGraphRequest) (ValidateGraphResponse, error) {
	var result ValidateGraphResponse

	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/public/graphs/validate", req, &result); err != nil {
		return ValidateGraphResponse{}, err
	}

	return result, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyBytes []byte

	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.config.BaseURL + path

	var lastErr error

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		var requestBody io.Reader
		if bodyBytes != nil {
			requestBody = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, requestBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		if c.config.APIKey != "" {
			req.Header.Set("X-API-Key", c.config.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		apiErr := c.parseResponse(resp, result)
		if apiErr == nil {
			return nil
		}

		lastErr = apiErr

		if e, ok := IsAPIError(apiErr); !ok || !e.IsRetryable() {
			return apiErr
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.config.RetryAttempts+1, lastErr)
}

func (c *Client) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(respBody),
		}

		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &errBody) == nil {
			if errBody.Error != "" {
				apiErr.Message = errBody.Error
			} else if errBody.Message != "" {
				apiErr.Message = errBody.Message
			}
		}

		return apiErr
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
