// Package revit talks to a Revit instance through the pyRevit Routes API.
// All model access happens by POSTing small IronPython snippets to the
// host's /execute_code/ endpoint and parsing the JSON those snippets print.
package revit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/service"
)

const (
	// DefaultHost is where pyRevit Routes listens when Revit runs locally.
	DefaultHost = "localhost"
	// DefaultPort is the default pyRevit Routes port.
	DefaultPort = 48884

	postTimeout = 120 * time.Second // code execution may be slow on large models
)

// Config holds connection settings for the Revit host.
type Config struct {
	Host string
	Port int
}

// Client is an HTTP client for the pyRevit Routes API. The API is POST-only;
// every interaction goes through /execute_code/.
type Client struct {
	baseURL    string
	postClient *http.Client
	logger     *slog.Logger
	retryOpts  service.RetryOptions
}

// ExecError carries a host-reported code execution failure: the error text,
// any hints the host attached, and whatever output the snippet printed
// before failing.
type ExecError struct {
	Message       string
	ErrorType     string
	Hints         []string
	PartialOutput string
}

func (e *ExecError) Error() string {
	if e.ErrorType != "" && !strings.HasPrefix(e.Message, e.ErrorType) {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return e.Message
}

func (e *ExecError) Unwrap() error {
	return common.ErrHostExecution
}

// NewClient creates a Revit host client.
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
		baseURL:    fmt.Sprintf("http://%s:%d/revit_mcp", host, port),
		postClient: &http.Client{Timeout: postTimeout},
		logger:     logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}
}

type execRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type execResponse struct {
	Status        string   `json:"status"`
	Output        string   `json:"output"`
	Error         string   `json:"error"`
	ErrorType     string   `json:"error_type"`
	Hints         []string `json:"hints"`
	PartialOutput string   `json:"partial_output"`
}

// ExecuteCode runs an IronPython snippet in the Revit document context and
// returns whatever the snippet printed. Transient transport failures are
// retried with backoff; host-reported code errors are returned as *ExecError
// and never retried. Output above 1 MB arrives truncated by the host and is
// passed through verbatim.
func (c *Client) ExecuteCode(ctx context.Context, code, description string) (string, error) {
	payload, err := json.Marshal(execRequest{Code: code, Description: description})
	if err != nil {
		return "", fmt.Errorf("failed to marshal execute request: %w", err)
	}

	var output string

	err = common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute_code/", bytes.NewReader(payload))
		if reqErr != nil {
			return &common.RetryableError{Err: reqErr, Retryable: false}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := c.postClient.Do(req)
		if doErr != nil {
			c.logger.Warn("host request failed",
				"description", description,
				"error", doErr)
			return fmt.Errorf("%w: %v", common.ErrHostUnavailable, doErr)
		}
		defer func() { _ = resp.Body.Close() }()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("%w: %v", common.ErrHostUnavailable, readErr)
		}

		var parsed execResponse
		if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil {
			// The response reached us but is not the routes payload; treat
			// it as a host fault, not a transport blip.
			return &common.RetryableError{
				Err:       fmt.Errorf("unexpected host response (status %d): %s", resp.StatusCode, truncateForLog(body)),
				Retryable: false,
			}
		}

		if parsed.Status != "success" {
			return &common.RetryableError{
				Err: &ExecError{
					Message:       parsed.Error,
					ErrorType:     parsed.ErrorType,
					Hints:         parsed.Hints,
					PartialOutput: parsed.PartialOutput,
				},
				Retryable: false,
			}
		}

		output = parsed.Output
		return nil
	}, c.retryOpts)

	if err != nil {
		return "", err
	}
	return output, nil
}

// Ping verifies the host is reachable and executing code.
func (c *Client) Ping(ctx context.Context) error {
	out, err := c.ExecuteCode(ctx, "print('pong')", "Connectivity check")
	if err != nil {
		return err
	}
	if !strings.Contains(out, "pong") {
		return fmt.Errorf("%w: unexpected ping output %q", common.ErrHostUnavailable, strings.TrimSpace(out))
	}
	return nil
}

func truncateForLog(body []byte) string {
	const max = 500
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
