package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medianote/api/internal/config"
)

// DocumentRenderer defines the interface for the markdown rendering service
type DocumentRenderer interface {
	Render(ctx context.Context, req *RenderRequest) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// RenderClient implements DocumentRenderer for the rendering microservice.
// The engines behind it (PDF/HTML/Word/image generators) are external; only
// this request/response contract matters here.
type RenderClient struct {
	httpClient *http.Client
	baseURL    string
}

// RenderRequest asks the service to render markdown into a document format.
// Minimal requests renderer defaults with all optional features off; the PDF
// renderer uses it for its single fallback attempt.
type RenderRequest struct {
	Format  string `json:"format"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Minimal bool   `json:"minimal,omitempty"`
}

// NewRenderClient creates a new document rendering client
func NewRenderClient(cfg *config.RenderConfig) *RenderClient {
	return &RenderClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Render sends markdown to the rendering service and returns the document
// bytes. Non-2xx responses surface the service's error body.
func (c *RenderClient) Render(ctx context.Context, renderReq *RenderRequest) ([]byte, error) {
	bodyBytes, err := json.Marshal(renderReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("render service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// HealthCheck checks if the rendering service is available
func (c *RenderClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("render service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *RenderClient) IsConfigured() bool {
	return c.baseURL != ""
}
