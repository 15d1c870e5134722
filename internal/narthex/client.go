package narthex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgallion1/xmlray/internal/statsview"
	"github.com/dgallion1/xmlray/internal/structure"
)

// ErrNotFound is returned when the dataset or node does not exist.
var ErrNotFound = errors.New("not found")

// Client communicates with the Narthex dataset HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration

	// Stats records upstream call latencies.
	Stats *LatencyStats
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: Backoff,
		Stats:   NewLatencyStats(time.Hour),
	}
}

// Origin types reported in dataset info.
const (
	OriginDrop    = "origin-drop"
	OriginHarvest = "origin-harvest"
)

// DatasetInfo is the response from GET /api/datasets/{name}/info.
type DatasetInfo struct {
	Origin struct {
		Type string `json:"type"`
	} `json:"origin"`
	Delimit *DelimitInfo `json:"delimit,omitempty"`
}

// DelimitInfo is the delimiter currently stored for a dataset.
type DelimitInfo struct {
	RecordRoot  string  `json:"recordRoot"`
	UniqueID    string  `json:"uniqueId"`
	RecordCount FlexInt `json:"recordCount"`
}

// FlexInt decodes a JSON number or a numeric string. Unparseable strings
// decode as zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("record count: %w", err)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		n = 0
	}
	*f = FlexInt(n)
	return nil
}

// DatasetInfo fetches origin and delimiter information for a dataset.
func (c *Client) DatasetInfo(ctx context.Context, name string) (DatasetInfo, error) {
	var info DatasetInfo
	if err := c.getJSON(ctx, "info", c.datasetURL(name, "info"), &info); err != nil {
		return DatasetInfo{}, fmt.Errorf("dataset info %s: %w", name, err)
	}
	return info, nil
}

// Tree fetches and validates the structure tree of a dataset.
func (c *Client) Tree(ctx context.Context, name string) (*structure.Node, error) {
	var root *structure.Node
	err := c.do(ctx, "index", http.MethodGet, c.datasetURL(name, "index"), nil, func(body io.Reader) error {
		var err error
		root, err = structure.Decode(body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", name, err)
	}
	return root, nil
}

// NodeStatus fetches the sample and histogram tiers available for a node.
func (c *Client) NodeStatus(ctx context.Context, name, path string) (statsview.Status, error) {
	var status statsview.Status
	if err := c.getJSON(ctx, "status", c.datasetURL(name, "status")+escapePath(path), &status); err != nil {
		return statsview.Status{}, fmt.Errorf("node status %s%s: %w", name, path, err)
	}
	return status, nil
}

// Sample fetches up to size raw values of a node.
func (c *Client) Sample(ctx context.Context, name, path string, size int) ([]string, error) {
	var resp struct {
		Sample []string `json:"sample"`
	}
	u := c.datasetURL(name, "sample", strconv.Itoa(size)) + escapePath(path)
	if err := c.getJSON(ctx, "sample", u, &resp); err != nil {
		return nil, fmt.Errorf("sample %s%s: %w", name, path, err)
	}
	return resp.Sample, nil
}

// Histogram fetches the size most frequent values of a node.
func (c *Client) Histogram(ctx context.Context, name, path string, size int) ([]statsview.Entry, error) {
	var resp struct {
		Histogram []statsview.Entry `json:"histogram"`
	}
	u := c.datasetURL(name, "histogram", strconv.Itoa(size)) + escapePath(path)
	if err := c.getJSON(ctx, "histogram", u, &resp); err != nil {
		return nil, fmt.Errorf("histogram %s%s: %w", name, path, err)
	}
	return resp.Histogram, nil
}

// SourcePaths fetches the authoritative set of source paths.
func (c *Client) SourcePaths(ctx context.Context, name string) ([]string, error) {
	var resp struct {
		SourcePaths []string `json:"sourcePaths"`
	}
	if err := c.getJSON(ctx, "source-paths", c.datasetURL(name, "source-paths"), &resp); err != nil {
		return nil, fmt.Errorf("source paths %s: %w", name, err)
	}
	return resp.SourcePaths, nil
}

// SetRecordDelimiter stores the record delimiter for a dataset.
func (c *Client) SetRecordDelimiter(ctx context.Context, name string, d structure.Delimiter) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delimiter: %w", err)
	}
	if err := c.do(ctx, "delimit", http.MethodPost, c.datasetURL(name, "delimit"), body, nil); err != nil {
		return fmt.Errorf("set delimiter %s: %w", name, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) datasetURL(name string, parts ...string) string {
	u := c.baseURL + "/api/datasets/" + url.PathEscape(name)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	return c.do(ctx, op, http.MethodGet, u, nil, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// do issues a request, retrying transient failures, and hands a successful
// response body to decode.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, decode func(io.Reader) error) error {
	var lastErr error
	for attempt := range MaxRetries {
		start := time.Now()
		lastErr = c.once(ctx, method, u, body, decode)
		c.Stats.Record(op, time.Since(start).Milliseconds(), lastErr != nil)
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			return lastErr
		}
		select {
		case <-time.After(c.retryDelay(lastErr, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, u string, body []byte, decode func(io.Reader) error) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("narthex api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			RetryAfter: parseRetryAfter(resp.Header),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if decode == nil {
		return nil
	}
	return decode(io.LimitReader(resp.Body, maxResponseBytes))
}

const maxResponseBytes = 64 << 20

// escapePath escapes each segment of a node path, keeping the slashes.
func escapePath(p string) string {
	u := url.URL{Path: p}
	return u.EscapedPath()
}
