// Package asana is a small REST client for the parts of the Asana API the
// sync engine needs: workspace, project, tag, user and section lookups plus
// task creation, update and external-id correlation.
package asana

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

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

const (
	defaultBaseURL = "https://app.asana.com/api/1.0"
	pageLimit      = 100
)

type Options struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
	UserAgent   string
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	userAgent   string
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	inner := opts.HTTPClient
	if inner == nil {
		inner = &http.Client{Timeout: 20 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	retrying := retryablehttp.NewClient()
	retrying.HTTPClient = inner
	retrying.Logger = slog.Default()
	retrying.RetryMax = maxRetries
	retrying.RetryWaitMin = baseDelay
	retrying.RetryWaitMax = maxDelay
	retrying.CheckRetry = retryPolicy
	retrying.Backoff = cappedBackoff
	retrying.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:     baseURL,
		accessToken: strings.TrimSpace(opts.AccessToken),
		httpClient:  retrying.StandardClient(),
		userAgent:   strings.TrimSpace(opts.UserAgent),
	}
}

// retryPolicy retries transport failures, 429 and 5xx. Other 4xx answers
// are final.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, nil
}

// cappedBackoff honors Retry-After but never waits longer than max.
func cappedBackoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	wait := retryablehttp.DefaultBackoff(min, max, attempt, resp)
	if wait > max {
		return max
	}
	return wait
}

// APIError is a non-2xx response. It unwraps to the model sentinel that
// matches its status so callers can classify it with errors.Is.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asana %s %s: status=%d message=%s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return model.ErrTaskNotFound
	case e.StatusCode == http.StatusConflict:
		return model.ErrDuplicateExternalID
	case e.StatusCode == http.StatusUnauthorized,
		e.StatusCode == http.StatusForbidden,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= 500:
		return model.ErrRemoteUnavailable
	default:
		return nil
	}
}

// do sends one API call. Retries happen in the transport. Payloads are
// wrapped in and unwrapped from the {"data": ...} envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) (*nextPage, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("%w: asana access token is empty", model.ErrRemoteUnavailable)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(envelope{Data: payload})
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: asana %s %s: %v", model.ErrRemoteUnavailable, method, path, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading asana response: %v", model.ErrRemoteUnavailable, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	var env responseEnvelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return nil, fmt.Errorf("decoding asana response: %w", err)
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decoding asana data: %w", err)
		}
	}
	return env.NextPage, nil
}

// list follows offset pagination until the last page.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", strconv.Itoa(pageLimit))

	var all []T
	for {
		var page []T
		next, err := c.do(ctx, http.MethodGet, path, query, nil, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == nil || next.Offset == "" {
			return all, nil
		}
		query.Set("offset", next.Offset)
	}
}

func errorMessage(body []byte) string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			if m := strings.TrimSpace(e.Message); m != "" {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(string(body))
}

// IsDuplicate reports whether a create failed because the external id is
// already taken. Asana answers with 409 or with a 400 naming the field.
func IsDuplicate(err error) bool {
	if errors.Is(err, model.ErrDuplicateExternalID) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return strings.Contains(strings.ToLower(apiErr.Message), "external")
	}
	return false
}
