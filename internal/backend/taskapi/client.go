// Package taskapi implements the service.Service interface over the
// task-storage service's HTTP API.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"tasklink/internal/metrics"
	"tasklink/internal/service"
)

const (
	// DefaultBaseURL is used when no API URL is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the timeout for API calls.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10

	// genericErrorMessage is used when an error response has no usable detail.
	genericErrorMessage = "an error occurred"
)

// Options configures a Client.
type Options struct {
	// BaseURL of the task-storage service.
	BaseURL string

	// Timeout bounds each call. Zero uses DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for transport. Nil uses a default client.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *metrics.Store
}

// Client implements service.Service against the task-storage HTTP API.
type Client struct {
	baseURL string
	tokens  oauth2.TokenSource
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Store
}

// New creates a client that attaches a token from tokens to every call.
// A nil token source makes every call fail with KindUnauthorized.
func New(tokens oauth2.TokenSource, opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL: %q", base)
	}

	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		tokens:  tokens,
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// List returns one page of the owner's tasks.
func (c *Client) List(ctx context.Context, ownerID string, opts service.ListOptions) (service.ListResult, error) {
	q := url.Values{}
	if opts.Offset > 0 {
		q.Set("skip", strconv.Itoa(opts.Offset))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if status := opts.Filter.Status(); status != "" {
		q.Set("status", status)
	}

	var result service.ListResult
	if err := c.do(ctx, "list", http.MethodGet, tasksPath(ownerID), q, nil, &result); err != nil {
		return service.ListResult{}, err
	}

	owned := result.Tasks[:0]
	for _, t := range result.Tasks {
		if t.OwnerID == "" || t.OwnerID != ownerID {
			c.logger.Warn("Dropping task not owned by the signed-in user",
				slog.String("task_id", t.ID), slog.String("owner", t.OwnerID))
			continue
		}
		owned = append(owned, t)
	}
	result.Tasks = owned
	return result, nil
}

// Get returns a single task.
func (c *Client) Get(ctx context.Context, ownerID, taskID string) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, "get", http.MethodGet, taskPath(ownerID, taskID), nil, nil, &t); err != nil {
		return service.Task{}, err
	}
	return t, checkOwner(t, ownerID)
}

// Create creates a new task.
func (c *Client) Create(ctx context.Context, ownerID string, in service.CreateInput) (service.Task, error) {
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	var t service.Task
	if err := c.do(ctx, "create", http.MethodPost, tasksPath(ownerID), nil, in, &t); err != nil {
		return service.Task{}, err
	}
	return t, checkOwner(t, ownerID)
}

// Update changes only the provided fields of a task.
func (c *Client) Update(ctx context.Context, ownerID, taskID string, in service.UpdateInput) (service.Task, error) {
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	var t service.Task
	if err := c.do(ctx, "update", http.MethodPut, taskPath(ownerID, taskID), nil, in, &t); err != nil {
		return service.Task{}, err
	}
	return t, checkOwner(t, ownerID)
}

// Toggle flips a task's completed flag.
func (c *Client) Toggle(ctx context.Context, ownerID, taskID string) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, "toggle", http.MethodPatch, taskPath(ownerID, taskID)+"/complete", nil, nil, &t); err != nil {
		return service.Task{}, err
	}
	return t, checkOwner(t, ownerID)
}

// Delete deletes a task.
func (c *Client) Delete(ctx context.Context, ownerID, taskID string) error {
	return c.do(ctx, "delete", http.MethodDelete, taskPath(ownerID, taskID), nil, nil, nil)
}

func tasksPath(ownerID string) string {
	return "/api/" + url.PathEscape(ownerID) + "/tasks"
}

func taskPath(ownerID, taskID string) string {
	return tasksPath(ownerID) + "/" + url.PathEscape(taskID)
}

// checkOwner rejects a task whose user_id is missing or names someone else.
func checkOwner(t service.Task, ownerID string) error {
	if t.OwnerID == "" {
		return service.Errorf(service.KindRequestFailed, "task %s has no owner", t.ID)
	}
	if t.OwnerID != ownerID {
		return service.Errorf(service.KindRequestFailed, "task %s belongs to another user", t.ID)
	}
	return nil
}

// do performs one call. body, if non-nil, is sent as JSON; out, if non-nil,
// receives the decoded response body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	tok, err := c.token()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &service.Error{Kind: service.KindRequestFailed, Message: "encode request", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &service.Error{Kind: service.KindRequestFailed, Message: "create request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	tok.SetAuthHeader(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(op, 0, time.Since(start))
		return wrapError(err)
	}
	defer resp.Body.Close()

	c.metrics.Observe(op, resp.StatusCode, time.Since(start))
	c.logger.Debug("Task store call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &service.Error{Kind: service.KindRequestFailed, Status: resp.StatusCode, Message: "read response", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &service.Error{Kind: service.KindRequestFailed, Status: resp.StatusCode, Message: "empty response body"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &service.Error{Kind: service.KindRequestFailed, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

// token returns the credential for the next call. A missing or expired
// credential is reported as unauthorized before any request is sent.
func (c *Client) token() (*oauth2.Token, error) {
	if c.tokens == nil {
		return nil, service.Errorf(service.KindUnauthorized, "no credential")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, &service.Error{Kind: service.KindUnauthorized, Message: "no credential", Err: err}
	}
	if !tok.Valid() {
		return nil, service.Errorf(service.KindUnauthorized, "credential expired")
	}
	return tok, nil
}

// statusError maps a non-2xx response to a typed error.
func statusError(status int, body []byte) error {
	msg := detailMessage(body)
	var kind service.Kind
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = service.KindUnauthorized
	case http.StatusNotFound:
		kind = service.KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = service.KindValidation
	default:
		kind = service.KindRequestFailed
	}
	return &service.Error{Kind: kind, Status: status, Message: msg}
}

// detailMessage extracts the {detail} field of an error body. The detail is
// usually a string; validation failures carry a list of {msg} objects.
func detailMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return genericErrorMessage
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return genericErrorMessage
		}
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return genericErrorMessage
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &service.Error{Kind: service.KindRequestFailed, Message: "request timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &service.Error{Kind: service.KindRequestFailed, Message: "request cancelled", Err: err}
	}
	return &service.Error{Kind: service.KindRequestFailed, Message: "request failed", Err: err}
}
