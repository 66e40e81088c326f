package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/services"
)

const (
	modelsPath = "/v1/models"
	healthPath = "/healthz"
)

// HTTPClient probes an executor over its HTTP API
type HTTPClient struct {
	id         string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP probe client for the given descriptor
func NewHTTPClient(descriptor models.ExecutorDescriptor, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPClient{
		id:      descriptor.ID,
		baseURL: strings.TrimRight(descriptor.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ID returns the executor id this client probes
func (c *HTTPClient) ID() string {
	return c.id
}

// ListModels queries the executor's current model list
func (c *HTTPClient) ListModels(ctx context.Context) ([]models.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return nil, services.WrapExternal("failed to create model list request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.WrapExternal(fmt.Sprintf("model list probe failed for %s", c.id), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read model list response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, services.WrapExternal(
			fmt.Sprintf("model list probe for %s returned status %d", c.id, resp.StatusCode), nil)
	}

	var payload listModelsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.WrapExternal("failed to unmarshal model list response", err)
	}

	return payload.toModels(c.id), nil
}

// HealthCheck reports whether the executor is currently servable
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return services.WrapExternal("failed to create health check request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.WrapExternal(fmt.Sprintf("health check failed for %s", c.id), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.WrapExternal(
			fmt.Sprintf("health check for %s returned status %d", c.id, resp.StatusCode), nil)
	}

	return nil
}
