// Package gateway is the typed client for the department's identity and
// dues REST API. Every admin screen and the kiosk flow goes through it;
// nothing else in this codebase talks to the upstream directly.
//
// The upstream wraps every payload in an envelope {status, data, msg}.
// HTTP status codes carry the error semantics: 401 means the bearer token
// is invalid or expired, 409 means a uniqueness conflict on create.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/knu-cse/dept-front/internal/config"
	"github.com/knu-cse/dept-front/internal/ioutil"
	"github.com/knu-cse/dept-front/internal/log"
	"github.com/knu-cse/dept-front/internal/urlutil"
)

// Client talks to the upstream API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gateway client from config. The configured timeout bounds
// every request, including the token exchange during the OAuth callback.
func New(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// envelope is the upstream response wrapper
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Msg    string          `json:"msg,omitempty"`
}

// do executes a request and returns the raw data payload from the envelope.
// A non-2xx response becomes an *APIError; errors.Is against ErrUnauthorized,
// ErrNotFound and ErrConflict works through it.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body any) (json.RawMessage, error) {
	target, err := urlutil.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building gateway URL: %w", err)
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.execute(req)
}

// doMultipart uploads a file as a multipart form with a single "file" part
func (c *Client) doMultipart(ctx context.Context, token, method, path, filename string, file io.Reader) (json.RawMessage, error) {
	target, err := urlutil.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building gateway URL: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copying upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.execute(req)
}

func (c *Client) execute(req *http.Request) (json.RawMessage, error) {
	log.LogDebugWithFields("gateway", "Upstream request", map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		// Tolerate non-JSON error bodies from proxies in front of the upstream
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("parsing gateway response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		if env.Msg == "" && len(respBody) > 0 {
			log.LogDebugWithFields("gateway", "Upstream error without envelope", map[string]any{
				"status": resp.StatusCode,
				"body":   ioutil.ReadLimited(bytes.NewReader(respBody), 512),
			})
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     env.Status,
			Msg:        env.Msg,
		}
	}

	return env.Data, nil
}

// decode unmarshals an envelope payload. A missing or null payload yields
// nil without error; callers that require data check for that.
func decode[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding gateway payload: %w", err)
	}
	return &v, nil
}
