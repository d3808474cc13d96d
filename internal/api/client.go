package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthScheme is the Authorization header scheme the service expects.
const AuthScheme = "JWT"

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the attendance REST service.
//
// Every call sends `Authorization: JWT <token>` and JSON bodies. The token is
// not checked locally; an empty or expired token is reported by the service.
type Client struct {
	baseURL    *url.URL
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets a per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the service rooted at baseURL.
// A trailing slash is added to baseURL if missing so resource paths resolve
// beneath it.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", baseURL)
	}
	if tokens == nil {
		tokens = StaticToken("")
	}

	c := &Client{
		baseURL:    u,
		tokens:     tokens,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListStudents returns the students linked to the current user
// (GET student?is_user=True). An empty slice is a valid answer.
func (c *Client) ListStudents(ctx context.Context) ([]Student, error) {
	query := url.Values{"is_user": {"True"}}
	status, body, err := c.do(ctx, http.MethodGet, "student", query, nil)
	if err != nil {
		return nil, err
	}
	var students []Student
	if err := decodeList(status, body, &students); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListSessions returns the sessions matching a class code
// (GET session?class_code=<code>). The code is sent as given, apart from
// query escaping. An empty slice is a valid answer.
func (c *Client) ListSessions(ctx context.Context, classCode string) ([]Session, error) {
	query := url.Values{"class_code": {classCode}}
	status, body, err := c.do(ctx, http.MethodGet, "session", query, nil)
	if err != nil {
		return nil, err
	}
	var sessions []Session
	if err := decodeList(status, body, &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CreateAttendance posts an attendance transaction (POST attendance).
// Rejections come back as *Error.
func (c *Client) CreateAttendance(ctx context.Context, req AttendanceRequest) (*Attendance, error) {
	status, body, err := c.do(ctx, http.MethodPost, "attendance", nil, req)
	if err != nil {
		return nil, err
	}
	if apiErr := classify(status, body); apiErr != nil {
		return nil, fmt.Errorf("create attendance: %w", apiErr)
	}

	var att Attendance
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &att, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("create attendance: %w", &Error{Kind: ErrUnexpected, Status: status, Body: body})
	}
	if err := json.Unmarshal(trimmed, &att); err != nil {
		return nil, fmt.Errorf("create attendance: decode response: %w", err)
	}
	return &att, nil
}

// do performs one request and returns the status and full body.
// Transport failures are returned as plain wrapped errors.
func (c *Client) do(ctx context.Context, method, resource string, query url.Values, payload any) (int, []byte, error) {
	ref := &url.URL{Path: resource}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(ref)

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load token: %w", err)
	}
	req.Header.Set("Authorization", AuthScheme+" "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api request",
		"method", method,
		"url", target.Redacted(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	return resp.StatusCode, body, nil
}

// decodeList decodes a collection response. An object body is classified as
// a service error; anything that is neither is reported as malformed.
func decodeList(status int, body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' && status < 400 {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	if apiErr := classify(status, body); apiErr != nil {
		return apiErr
	}
	if len(trimmed) > 0 && trimmed[0] != '{' {
		if err := json.Unmarshal(trimmed, new(any)); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return &Error{Kind: ErrUnexpected, Status: status, Body: body}
}
