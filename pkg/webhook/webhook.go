// Package webhook provides an HTTP client for posting parse reports to webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ccollicutt/logparse/internal/logfields"
	"github.com/ccollicutt/logparse/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// RunIDHeader carries the report's run ID so receivers can deduplicate.
const RunIDHeader = "X-Logparse-Run-Id"

// Client sends parse reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	// Name identifies the target in logs; defaults to URL.
	Name    string
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

func (o SendOptions) displayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.URL
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a parse report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := json.Marshal(report)
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logparse-webhook")
	req.Header.Set(RunIDHeader, report.RunID)
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// SendAll posts the report to every target concurrently and logs each
// outcome. Responses are returned in target order. Failures never abort the
// other deliveries.
func (c *Client) SendAll(ctx context.Context, logger *slog.Logger, report *output.Report, targets []SendOptions) []*Response {
	if logger == nil {
		logger = slog.Default()
	}
	responses := make([]*Response, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses[i] = c.Send(ctx, report, target)
		}()
	}
	wg.Wait()

	for i, resp := range responses {
		name := targets[i].displayName()
		if resp.Success() {
			logger.Info("webhook sent",
				logfields.Webhook(name),
				logfields.Status(fmt.Sprint(resp.StatusCode)),
				logfields.DurationMS(float64(resp.Duration.Microseconds())/1000),
				logfields.RunID(report.RunID))
		} else {
			logger.Warn("webhook failed",
				logfields.Webhook(name),
				logfields.RunID(report.RunID),
				logfields.Error(resp.Error))
		}
	}

	return responses
}
