// Package backend is the HTTP client for the hosted backend platform: a
// managed auth service plus a row-level relational data API. The backend is a
// black box reached over the network; everything here is request plumbing,
// not data logic.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to one backend project, identified by its base URL and
// publishable API key. A single Client is shared across the application and
// is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	jwtSecret  string
	httpClient *http.Client
}

// NewClient creates a backend client. jwtSecret is optional: when set, access
// tokens are verified locally before their claims are trusted; when empty,
// claims are read without signature verification (expiry bookkeeping only).
func NewClient(baseURL, apiKey, jwtSecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		jwtSecret: jwtSecret,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// do performs one request against the backend. token is the caller's access
// token; when empty the publishable key is used as the bearer, which is how
// anonymous reads are authorized. A non-nil dst receives the decoded JSON
// response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, payload, dst any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if dst != nil && len(respBody) > 0 {
		if err := decodeRows(respBody, dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeRows unmarshals a response body into dst. The data API wraps single
// inserts in a one-element array; when dst is not itself a slice target,
// unwrap the first element.
func decodeRows(raw []byte, dst any) error {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(raw, dst); err == nil {
			return nil
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		return json.Unmarshal(rows[0], dst)
	}
	return json.Unmarshal(raw, dst)
}

// bearer picks the Authorization value for a request: the user's access token
// when present, the publishable key otherwise.
func (c *Client) bearer(token string) string {
	if token == "" {
		token = c.apiKey
	}
	return "Bearer " + token
}
