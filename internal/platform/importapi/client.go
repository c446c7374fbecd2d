package importapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

var (
	// ErrUnexpectedStatus wraps any non-2xx response from the import API.
	ErrUnexpectedStatus = errors.New("import api: unexpected status")
)

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config defines settings for the import API client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a thin REST wrapper over the upstream import/suggestion API.
// It never retries; callers decide what a failure means.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// New creates an import API client.
func New(httpClient HTTPClient, cfg Config) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// FetchImportStatus reads the current state of an import job.
func (c *Client) FetchImportStatus(ctx context.Context, importID string) (model.ImportStatus, error) {
	body, err := c.get(ctx, "/imports/"+url.PathEscape(importID)+"/status")
	if err != nil {
		return model.ImportStatus{}, err
	}
	defer body.Close()

	var wire wireImportStatus
	if err := json.NewDecoder(body).Decode(&wire); err != nil {
		return model.ImportStatus{}, fmt.Errorf("decode import status: %w", err)
	}
	status := wire.toModel()
	if status.ImportID == "" {
		status.ImportID = importID
	}
	return status, nil
}

// FetchSuggestions reads a project's raw overlay suggestion stream.
func (c *Client) FetchSuggestions(ctx context.Context, projectID string) ([]model.Suggestion, error) {
	body, err := c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/overlay-suggestions")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	suggestions, err := DecodeSuggestions(body)
	if err != nil {
		return nil, err
	}
	for i := range suggestions {
		if suggestions[i].ProjectID == "" {
			suggestions[i].ProjectID = projectID
		}
	}
	return suggestions, nil
}

func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(snippet))
	}
	return resp.Body, nil
}
