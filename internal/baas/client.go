// Package baas is a client for the hosted backend: a PostgREST data API,
// an object storage API and a GoTrue auth API behind one base URL.
package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("resource already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceKeyRequired = errors.New("operation requires the service role key")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Is maps status codes onto the sentinel errors.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == "PGRST116"
	case ErrDuplicate:
		return e.Status == http.StatusConflict || e.Code == "23505" || e.Code == "409" || strings.EqualFold(e.Code, "Duplicate")
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// Client talks to one backend project.
type Client struct {
	baseURL    *url.URL
	anonKey    string
	serviceKey string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithServiceKey enables the admin operations. The service key must never
// reach a browser.
func WithServiceKey(key string) Option {
	return func(c *Client) { c.serviceKey = key }
}

// New creates a client for the project at rawURL using its public anon key.
func New(rawURL, anonKey string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("backend URL is required")
	}
	if anonKey == "" {
		return nil, errors.New("backend anon key is required")
	}
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must be http or https, got %q", rawURL)
	}

	c := &Client{
		baseURL: u,
		anonKey: anonKey,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HasServiceKey reports whether admin operations are available.
func (c *Client) HasServiceKey() bool {
	return c.serviceKey != ""
}

// endpoint joins path segments onto the base URL, escaping each segment.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	raw := make([]string, len(segments))
	for i, s := range segments {
		raw[i] = s
		escaped[i] = escapePath(s)
	}
	u.Path = c.baseURL.Path + "/" + strings.Join(raw, "/")
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// escapePath escapes each slash-separated part of p.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

type request struct {
	method  string
	url     string
	body    any
	raw     io.Reader
	token   string
	key     string
	headers map[string]string
}

// do sends req and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	contentType := ""
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	key := req.key
	if key == "" {
		key = c.anonKey
	}
	token := req.token
	if token == "" {
		token = key
	}
	httpReq.Header.Set("apikey", key)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorBody covers the error shapes of the three APIs.
type errorBody struct {
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	StatusCode       json.RawMessage `json:"statusCode"`
}

func parseError(status int, data []byte) error {
	e := &Error{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	e.Message = firstNonEmpty(body.Message, body.Msg, body.ErrorDescription, body.Error, http.StatusText(status))
	e.Code = firstNonEmpty(rawString(body.Code), body.ErrorCode, rawString(body.StatusCode))
	if e.Code == "" && body.Error != "" && body.Error != e.Message {
		e.Code = body.Error
	}
	return e
}

// rawString renders a JSON string or number as a plain string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
