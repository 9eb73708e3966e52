package api

// CATALOG STORAGE CLIENT

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client reads catalog documents from an HTTP object storage endpoint.
// Objects are fetched with GET {baseURL}/{name}; a folder listing is
// GET {baseURL}/{prefix} answering {"items":[{"name":"..."}]}.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type listResponse struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Read returns the raw bytes of an object.
func (c *Client) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", name, err)
	}
	return data, nil
}

// List returns the base names of the objects under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.get(ctx, prefix)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", prefix, err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", prefix, fs.ErrNotExist)
	}

	names := make([]string, 0, len(result.Items))
	for _, it := range result.Items {
		if it.Name != "" {
			names = append(names, path.Base(it.Name))
		}
	}
	return names, nil
}

func (c *Client) get(ctx context.Context, name string) (*http.Response, error) {
	endpoint := c.baseURL + "/" + escapePath(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	default:
		resp.Body.Close()
		c.logger.Debug("Storage request rejected",
			zap.String("object", name),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("unexpected status for %s: %d", name, resp.StatusCode)
	}
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
