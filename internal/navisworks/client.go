// Package navisworks talks to the Navisworks routes plugin, a small C#
// HTTP service exposing clash detective, quantification, and model
// federation. Unlike the Revit host there is no code execution; every
// capability is a fixed route.
package navisworks

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

	"github.com/mbagrov/bimtally/internal/common"
)

const (
	// DefaultHost is where the routes plugin listens when Navisworks runs
	// locally.
	DefaultHost = "localhost"
	// DefaultPort is the plugin's default port, one above the Revit host.
	DefaultPort = 48885

	getTimeout  = 30 * time.Second
	postTimeout = 120 * time.Second // clash runs and federation are slow
)

// Config holds connection settings for the Navisworks plugin.
type Config struct {
	Host string
	Port int
}

// Client is an HTTP client for the Navisworks routes plugin. Calls are not
// retried: the expensive routes (clash runs, federation) are not safe to
// repeat blindly.
type Client struct {
	baseURL    string
	getClient  *http.Client
	postClient *http.Client
	logger     *slog.Logger
}

// APIError is a failure reported by the plugin itself, as opposed to a
// transport failure reaching it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("navisworks service error (status %d): %s", e.StatusCode, e.Message)
	}
	return "navisworks service error: " + e.Message
}

// NewClient creates a Navisworks plugin client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		getClient:  &http.Client{Timeout: getTimeout},
		postClient: &http.Client{Timeout: postTimeout},
		logger:     logger,
	}
}

// Status reports the running Navisworks instance: version, open document,
// element count.
type Status struct {
	Version       string `json:"version"`
	Status        string `json:"status"`
	File          string `json:"file"`
	Elements      int    `json:"elements"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Port          int    `json:"port"`
	Timestamp     string `json:"timestamp"`
}

// ClashTest summarizes one clash detective test.
type ClashTest struct {
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	TotalClashes int            `json:"total_clashes"`
	ByStatus     map[string]int `json:"by_status"`
	LastRun      string         `json:"last_run"`
}

// ClashList is the clash detective test inventory.
type ClashList struct {
	Tests []ClashTest `json:"tests"`
	Count int         `json:"count"`
}

// Clash is one collision from a clash test run.
type Clash struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Distance    float64 `json:"distance"`
	Level       string  `json:"level"`
	Description string  `json:"description"`
}

// ClashRun is the result of running one clash test, with a status rollup
// computed client-side.
type ClashRun struct {
	TestName     string         `json:"test_name"`
	TotalClashes int            `json:"total_clashes"`
	Clashes      []Clash        `json:"clashes"`
	ByStatus     map[string]int `json:"by_status"`
	RunAt        string         `json:"run_at"`
}

// CategoryVolume is one category's quantified volume.
type CategoryVolume struct {
	Category string  `json:"category"`
	VolumeM3 float64 `json:"volume_m3"`
}

// VolumeReport is the quantification answer. Method is "takeoff" when a
// quantification workbook exists, "bbox_approximation" otherwise.
type VolumeReport struct {
	Method         string           `json:"method"`
	CategoryFilter string           `json:"category_filter,omitempty"`
	TotalVolumeM3  float64          `json:"total_volume_m3"`
	Categories     []CategoryVolume `json:"categories"`
	Note           string           `json:"note,omitempty"`
}

// AggregateResult reports a model federation run.
type AggregateResult struct {
	Success       bool     `json:"success"`
	Method        string   `json:"method"`
	AppendedCount int      `json:"appended_count"`
	Appended      []string `json:"appended"`
	SavedTo       string   `json:"saved_to"`
}

// GetStatus fetches the instance status.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Clashes lists clash tests. A non-empty filter keeps only tests whose name
// contains it case-insensitively; no match reports common.ErrNotFound along
// with the available test names.
func (c *Client) Clashes(ctx context.Context, filter string) (*ClashList, error) {
	var list ClashList
	if err := c.doJSON(ctx, http.MethodGet, "/clash/list", nil, &list); err != nil {
		return nil, err
	}
	if filter == "" {
		return &list, nil
	}

	needle := strings.ToLower(filter)
	var matched []ClashTest
	for _, test := range list.Tests {
		if strings.Contains(strings.ToLower(test.Name), needle) {
			matched = append(matched, test)
		}
	}
	if len(matched) == 0 {
		names := make([]string, len(list.Tests))
		for i, test := range list.Tests {
			names[i] = test.Name
		}
		return nil, fmt.Errorf("%w: clash test %q (available: %s)",
			common.ErrNotFound, filter, strings.Join(names, ", "))
	}
	return &ClashList{Tests: matched, Count: len(matched)}, nil
}

// RunClash executes one clash test by exact or partial name and returns its
// collisions with a by-status rollup.
func (c *Client) RunClash(ctx context.Context, testName string) (*ClashRun, error) {
	if strings.TrimSpace(testName) == "" {
		return nil, fmt.Errorf("%w: clash test name is required", common.ErrValidation)
	}

	var run ClashRun
	if err := c.doJSON(ctx, http.MethodPost, "/clash/run/"+url.PathEscape(testName), struct{}{}, &run); err != nil {
		return nil, err
	}

	byStatus := make(map[string]int)
	for _, clash := range run.Clashes {
		status := clash.Status
		if status == "" {
			status = "Unknown"
		}
		byStatus[status]++
	}
	run.ByStatus = byStatus
	return &run, nil
}

// Volumes fetches quantified volumes, optionally filtered to one category.
// Useful as a cross-check against the Revit scanner's numbers.
func (c *Client) Volumes(ctx context.Context, category string) (*VolumeReport, error) {
	route := "/quantify/volumes"
	if category != "" {
		route += "?" + url.Values{"category": {category}}.Encode()
	}
	var report VolumeReport
	if err := c.doJSON(ctx, http.MethodGet, route, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

type aggregateRequest struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

// Aggregate federates the given NWC/NWF files into one NWD model saved at
// outputPath. Paths are interpreted on the machine running Navisworks.
func (c *Client) Aggregate(ctx context.Context, inputs []string, outputPath string) (*AggregateResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: input model list is empty", common.ErrValidation)
	}
	if strings.TrimSpace(outputPath) == "" {
		return nil, fmt.Errorf("%w: output path is required", common.ErrValidation)
	}

	var result AggregateResult
	if err := c.doJSON(ctx, http.MethodPost, "/aggregate", aggregateRequest{Inputs: inputs, Output: outputPath}, &result); err != nil {
		return nil, err
	}
	if result.Method == "" {
		result.Method = "plugin"
	}
	return &result, nil
}

func (c *Client) doJSON(ctx context.Context, method, route string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.getClient
	if method == http.MethodPost {
		httpClient = c.postClient
	}

	c.logger.Debug("navisworks request", "method", method, "route", route)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v (is Navisworks running with the routes plugin loaded?)",
			common.ErrHostUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrHostUnavailable, err)
	}

	// The plugin reports its own failures as {"error": ...}, sometimes with
	// a 200 status. Probe before decoding the real shape.
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "unexpected response: " + truncateBody(data),
		}
	}
	if probe.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: probe.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse navisworks response: %w", err)
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 300
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
