// Package platform is the HTTP client for the lakehouse control plane: the
// statement execution API, database instance and credential endpoints, the
// OAuth token endpoint, and the current-user endpoint.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the platform connection settings.
type Config struct {
	// Host is the workspace base URL, e.g. https://example.cloud.lakehouse.com
	Host string

	// Token is a personal access token. Used when ClientID is empty.
	Token string

	// ClientID / ClientSecret select OAuth machine-to-machine auth.
	ClientID     string
	ClientSecret string

	// PerRequestAuth forwards the caller's own token from the request
	// context instead of any service credential.
	PerRequestAuth bool

	// HTTPTimeout bounds each individual API call.
	HTTPTimeout time.Duration
}

// Client talks to the platform REST API. Safe for concurrent use.
type Client struct {
	host  string
	httpc *http.Client
	creds CredentialSource
}

// New creates a platform client from config, selecting the credential
// source by auth mode.
func New(cfg *Config) (*Client, error) {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		return nil, fmt.Errorf("platform host is required")
	}

	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}

	var creds CredentialSource
	switch {
	case cfg.PerRequestAuth:
		creds = &forwardedSource{}
	case cfg.ClientID != "":
		creds = newOAuthSource(host, cfg.ClientID, cfg.ClientSecret, httpc)
	case cfg.Token != "":
		creds = &patSource{token: cfg.Token}
	default:
		return nil, fmt.Errorf("no platform credentials configured: set token or client_id/client_secret")
	}

	return &Client{
		host:  host,
		httpc: httpc,
		creds: creds,
	}, nil
}

// Host returns the workspace base URL.
func (c *Client) Host() string {
	return c.host
}

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("platform API error %d (%s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("platform API error %d: %s", e.StatusCode, e.Message)
}

// do performs an authenticated JSON request and decodes the response into
// out (which may be nil for endpoints without a response body).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
