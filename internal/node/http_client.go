package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	healthPath   = "healthz"
	generatePath = "v1/generate"

	// maxErrorBody bounds how much of a failed response ends up in errors.
	maxErrorBody = 4096
)

type HTTPClient struct {
	base *url.URL
	http *http.Client
}

// NewHTTPClient validates base and returns a client for it. Paths are
// resolved relative to base, so "http://host/prefix/" keeps its prefix.
func NewHTTPClient(base string, httpClient *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("invalid node url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid node url %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid node url %q: missing host", base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{base: u, http: httpClient}, nil
}

// NewClients builds one HTTPClient per url, preserving order.
func NewClients(urls []string, httpClient *http.Client) ([]Client, error) {
	clients := make([]Client, 0, len(urls))
	for _, u := range urls {
		c, err := NewHTTPClient(u, httpClient)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (c *HTTPClient) BaseURL() string {
	return c.base.String()
}

func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(healthPath), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("node healthz: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "healthz", StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *HTTPClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(generatePath), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("node generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: "generate", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode generate response: %v", ErrProtocol, err)
	}
	return &out, nil
}

func (c *HTTPClient) resolve(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}
