// Package client calls the RosterLab HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rosterlab/rosterlab/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rosterlab: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rosterlab: %d: %s", e.Status, e.Message)
}

// Throttled reports a rate-limit or upstream-quota rejection.
func (e *APIError) Throttled() bool {
	return e.Status == http.StatusTooManyRequests
}

// Client is a RosterLab API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey authenticates with X-API-Key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithSessionToken authenticates with a bearer session token.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 3 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggest calls POST /api/v1/suggest.
func (c *Client) Suggest(ctx context.Context, req models.SuggestRequest) (*models.SuggestResponse, error) {
	var resp models.SuggestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/suggest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Review calls POST /api/v1/review.
func (c *Client) Review(ctx context.Context, req models.ReviewRequest) (*models.ReviewResult, error) {
	var resp models.ReviewResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/review", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search calls GET /api/v1/candidates.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("q", term)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var page struct {
		Candidates []models.Candidate `json:"candidates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/candidates?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return page.Candidates, nil
}

// Candidate calls GET /api/v1/candidates/{id}.
func (c *Client) Candidate(ctx context.Context, id int) (*models.Candidate, error) {
	var cand models.Candidate
	if err := c.do(ctx, http.MethodGet, "/api/v1/candidates/"+strconv.Itoa(id), nil, &cand); err != nil {
		return nil, err
	}
	return &cand, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body models.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
		apiErr.RetryAfter = time.Duration(body.RetryAfterSeconds) * time.Second
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	if apiErr.RetryAfter == 0 {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}
