// Package api is the REST client for the video-analytics backend. It is the
// console's snapshot source: results, the stream roster, dashboard stats and
// the model list. Stream lifecycle calls (create/start/stop/delete) are
// opaque remote operations on the backend's stream manager.
package api

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

	"github.com/visorlabs/visor/internal/result"
)

const defaultTimeout = 10 * time.Second

// Client talks to one backend instance. All methods are safe for concurrent
// use; failures are returned as errors and never retried here — callers treat
// a failed call as "no update this cycle".
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the backend at baseURL. apiKey may be empty;
// timeout <= 0 selects the default.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// ResultFilter narrows a snapshot fetch server-side.
type ResultFilter struct {
	StreamID   string
	Limit      int // default 100
	AlertLevel result.AlertLevel
}

// FetchResults fetches a filtered result snapshot. The returned total is the
// server's count for the delivered page.
func (c *Client) FetchResults(ctx context.Context, f ResultFilter) ([]result.AIResult, int, error) {
	q := url.Values{}
	if f.StreamID != "" {
		q.Set("stream_id", f.StreamID)
	}
	if f.AlertLevel != "" {
		q.Set("alert_level", string(f.AlertLevel))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = result.DefaultCapacity
	}
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Results []result.AIResult `json:"results"`
		Total   int               `json:"total"`
	}
	if err := c.get(ctx, "/results?"+q.Encode(), &resp); err != nil {
		return nil, 0, err
	}
	return resp.Results, resp.Total, nil
}

// FetchStreams fetches the stream roster.
func (c *Client) FetchStreams(ctx context.Context) ([]result.StreamInfo, error) {
	var resp struct {
		Streams []result.StreamInfo `json:"streams"`
		Total   int                 `json:"total"`
	}
	if err := c.get(ctx, "/streams", &resp); err != nil {
		return nil, err
	}
	return resp.Streams, nil
}

// FetchStats fetches the dashboard aggregates.
func (c *Client) FetchStats(ctx context.Context) (*result.DashboardStats, error) {
	var stats result.DashboardStats
	if err := c.get(ctx, "/dashboard/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FetchModels fetches the available AI models.
func (c *Client) FetchModels(ctx context.Context) ([]result.ModelInfo, error) {
	var resp struct {
		Models map[string]result.ModelInfo `json:"models"`
		Total  int                         `json:"total"`
	}
	if err := c.get(ctx, "/ai-models", &resp); err != nil {
		return nil, err
	}
	models := make([]result.ModelInfo, 0, len(resp.Models))
	for name, m := range resp.Models {
		if m.Name == "" {
			m.Name = name
		}
		models = append(models, m)
	}
	return models, nil
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/health", &resp)
}

// CreateStream registers a new stream and returns its id. When cfg.StreamID
// is empty a fresh UUID is assigned, matching the backend's own convention.
func (c *Client) CreateStream(ctx context.Context, cfg result.StreamConfig) (string, error) {
	if cfg.StreamID == "" {
		cfg.StreamID = uuid.New().String()
	}
	var resp struct {
		Message  string `json:"message"`
		StreamID string `json:"stream_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/streams", cfg, &resp); err != nil {
		return "", err
	}
	if resp.StreamID != "" {
		return resp.StreamID, nil
	}
	return cfg.StreamID, nil
}

// StartStream starts processing on a stream.
func (c *Client) StartStream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/streams/"+url.PathEscape(id)+"/start", nil, nil)
}

// StopStream stops processing on a stream.
func (c *Client) StopStream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/streams/"+url.PathEscape(id)+"/stop", nil, nil)
}

// DeleteStream removes a stream.
func (c *Client) DeleteStream(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/streams/"+url.PathEscape(id), nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do performs one request. body (if non-nil) is sent as JSON; a non-2xx
// status becomes an error carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, errorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts the backend's error text from a failed response.
// The backend uses {"detail": …}; {"error": …} is accepted for compatibility.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error body"
	}
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
