// Package jira implements the issue tracker contract against the Jira REST API (v2).
//
// Endpoints used:
//
//	GET  /rest/api/2/issue/{key}?fields=status     current status
//	GET  /rest/api/2/issue/{key}/transitions       transitions available now
//	POST /rest/api/2/issue/{key}/transitions       {"transition":{"id":"..."}}
//	POST /rest/api/2/issue/{key}/comment           {"body":"..."}
//
// Network errors, 429 and 5xx responses are retried with exponential backoff
// and surface as [tracker.ErrTrackerUnavailable] once retries are exhausted.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"issueflow/internal/tracker"
)

// Client defaults. Timeout and RetryInterval fall back to these when zero;
// MaxRetries of zero disables retries.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 500 * time.Millisecond
)

const userAgent = "issueflow/1.0"

// Options configures a [Client].
type Options struct {
	URL      string
	Username string
	APIToken string

	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL      string
	Username string
	APIToken string

	HTTPClient    *http.Client
	MaxRetries    int
	RetryInterval time.Duration

	logger *slog.Logger
}

// NewClient creates a new Jira client.
func NewClient(opts Options) *Client {
	c := &Client{
		URL:           strings.TrimSuffix(opts.URL, "/"),
		Username:      opts.Username,
		APIToken:      opts.APIToken,
		HTTPClient:    opts.HTTPClient,
		MaxRetries:    opts.MaxRetries,
		RetryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
	if c.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.HTTPClient = &http.Client{Timeout: timeout}
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// APIError is a non-2xx response from Jira.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   struct {
		Name string `json:"name"`
	} `json:"to"`
}

// GetStatus returns the issue's current status name.
func (c *Client) GetStatus(ctx context.Context, issueKey string) (string, error) {
	path := fmt.Sprintf("/rest/api/2/issue/%s?fields=status", url.PathEscape(issueKey))

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("get status %s: %w", issueKey, classify(err, false))
	}

	var result struct {
		Fields struct {
			Status *struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse issue %s: %w: %w", issueKey, tracker.ErrTrackerUnavailable, err)
	}
	if result.Fields.Status == nil {
		return "", fmt.Errorf("issue %s: %w: response has no status field", issueKey, tracker.ErrTrackerUnavailable)
	}
	return result.Fields.Status.Name, nil
}

// Transitions lists the transitions currently available on the issue.
func (c *Client) Transitions(ctx context.Context, issueKey string) ([]Transition, error) {
	path := fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(issueKey))

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list transitions %s: %w", issueKey, classify(err, false))
	}

	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse transitions %s: %w: %w", issueKey, tracker.ErrTrackerUnavailable, err)
	}
	return result.Transitions, nil
}

// ApplyTransition performs the transition named transition on the issue.
//
// The name is matched exactly first, then case-insensitively. A name that
// matches no available transition yields [tracker.ErrTransitionNotPermitted].
func (c *Client) ApplyTransition(ctx context.Context, issueKey, transition string) error {
	available, err := c.Transitions(ctx, issueKey)
	if err != nil {
		return err
	}

	t, ok := findTransition(available, transition)
	if !ok {
		names := make([]string, len(available))
		for i, a := range available {
			names[i] = a.Name
		}
		return fmt.Errorf("%w: %q on %s (available: %s)",
			tracker.ErrTransitionNotPermitted, transition, issueKey, strings.Join(names, ", "))
	}

	payload, err := json.Marshal(map[string]any{"transition": map[string]string{"id": t.ID}})
	if err != nil {
		return fmt.Errorf("marshal transition request: %w", err)
	}

	// A POST that commits but fails in transit must not be repeated; the
	// transition id is no longer offered once the issue has moved.
	landed := func(ctx context.Context) bool {
		if t.To.Name == "" {
			return false
		}
		status, err := c.GetStatus(ctx, issueKey)
		return err == nil && status == t.To.Name
	}

	path := fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(issueKey))
	if _, err := c.doRequestChecked(ctx, http.MethodPost, path, payload, landed); err != nil {
		return fmt.Errorf("apply transition %q to %s: %w", transition, issueKey, classify(err, true))
	}

	c.logger.Debug("jira transition applied", "issue", issueKey, "transition", t.Name, "id", t.ID)
	return nil
}

// AddComment posts a comment on the issue. Jira Server and Data Center take
// wiki markup here, so body is sent as plain text.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("marshal comment request: %w", err)
	}

	path := fmt.Sprintf("/rest/api/2/issue/%s/comment", url.PathEscape(issueKey))
	if _, err := c.doRequest(ctx, http.MethodPost, path, payload); err != nil {
		return fmt.Errorf("add comment to %s: %w", issueKey, classify(err, false))
	}
	return nil
}

func findTransition(available []Transition, name string) (Transition, bool) {
	for _, t := range available {
		if t.Name == name {
			return t, true
		}
	}
	for _, t := range available {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Transition{}, false
}

// classify maps a request error onto the tracker sentinels. A 404 maps to
// ErrIssueNotFound and a 400 on a transition POST to ErrTransitionNotPermitted.
// Any other failure maps to ErrTrackerUnavailable.
func classify(err error, transitionPost bool) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %w", tracker.ErrIssueNotFound, err)
		case apiErr.StatusCode == http.StatusBadRequest && transitionPost:
			return fmt.Errorf("%w: %w", tracker.ErrTransitionNotPermitted, err)
		}
	}
	return fmt.Errorf("%w: %w", tracker.ErrTrackerUnavailable, err)
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.RetryInterval
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.MaxRetries)), ctx)
}

// doRequest executes an authenticated request with retry and returns the
// response body. Only network errors, 429 and 5xx are retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return c.doRequestChecked(ctx, method, path, body, nil)
}

// doRequestChecked is doRequest for non-idempotent requests. Before each
// retry, landed reports whether the failed attempt took effect anyway; if so
// the request counts as done and is not sent again.
func (c *Client) doRequestChecked(ctx context.Context, method, path string, body []byte, landed func(context.Context) bool) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	var respBody []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		b, err := c.do(ctx, method, path, body)
		if err == nil {
			respBody = b
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if landed != nil && landed(ctx) {
			c.logger.Debug("jira request failed but took effect", "method", method, "path", path, "attempt", attempt, "error", err)
			respBody = nil
			return nil
		}
		c.logger.Debug("jira request failed, retrying", "method", method, "path", path, "attempt", attempt, "error", err)
		return err
	}, c.newBackOff(ctx))

	return respBody, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// setAuth uses Basic auth when a username is configured and a Bearer token
// (personal access token) otherwise.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
}
