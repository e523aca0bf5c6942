// Package bugzilla attaches must-gather archives to Bugzilla bugs through
// the REST API.
package bugzilla

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptrace"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"medik8s/gathertrim/pkg/config"
)

const (
	// AttachmentSummary is the summary of every uploaded attachment.
	AttachmentSummary = "Result from must-gather command"

	// AttachmentContentType is the MIME type of uploaded archives.
	AttachmentContentType = "application/gzip"

	apiKeyHeader = "X-BUGZILLA-API-KEY"
)

// Client is a Bugzilla REST client.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetries sets how often a request failing with a network error or a
// 5xx status is repeated, and the initial backoff between attempts. Uploads
// are only repeated when they failed before the request was written.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

// NewClient creates a client for the configured Bugzilla instance.
func NewClient(cfg *config.BugzillaConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: 2,
		backoff:    time.Second,
		logger:     slog.Default().With("component", "bugzilla"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the Bugzilla base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BugExists reports whether the bug can be read. A bug Bugzilla reports as
// invalid yields false without error.
func (c *Client) BugExists(ctx context.Context, bugID int) (bool, error) {
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rest/bug/%d", bugID), nil, nil, true)
	switch {
	case err == nil:
		return true, nil
	case IsInvalidBug(err):
		return false, nil
	default:
		return false, err
	}
}

// Attachment is a file to attach to a bug.
type Attachment struct {
	BugID    int
	FileName string
	Comment  string
	Data     []byte
}

type attachRequest struct {
	APIKey      string `json:"api_key,omitempty"`
	IDs         []int  `json:"ids"`
	Comment     string `json:"comment,omitempty"`
	Summary     string `json:"summary"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
	Data        string `json:"data"`
}

type attachResponse struct {
	IDs []int `json:"ids"`
}

// Attach uploads an attachment and returns the ids Bugzilla assigned.
func (c *Client) Attach(ctx context.Context, a Attachment) ([]int, error) {
	body, err := json.Marshal(attachRequest{
		APIKey:      c.apiKey,
		IDs:         []int{a.BugID},
		Comment:     a.Comment,
		Summary:     AttachmentSummary,
		ContentType: AttachmentContentType,
		FileName:    a.FileName,
		Data:        base64.StdEncoding.EncodeToString(a.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachment: %w", err)
	}

	// Bugzilla may store an upload whose response never arrives, so a sent
	// attachment is not repeated.
	var resp attachResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/rest/bug/%d/attachment", a.BugID), body, &resp, false); err != nil {
		return nil, err
	}

	c.logger.Info("attachment uploaded",
		"bug_id", a.BugID,
		"file_name", a.FileName,
		"size", len(a.Data),
		"attachment_ids", resp.IDs,
	)
	return resp.IDs, nil
}

// AttachFile uploads the file at path under its base name.
func (c *Client) AttachFile(ctx context.Context, bugID int, path, comment string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Attach(ctx, Attachment{
		BugID:    bugID,
		FileName: filepath.Base(path),
		Comment:  comment,
		Data:     data,
	})
}

// Comment returns the attachment comment for a trim window.
func Comment(window time.Duration) string {
	return fmt.Sprintf("Result from running must-gather\nLog files were trimmed to the last %s", window)
}

// do sends a request and decodes a successful JSON response into out.
// Requests that are not idempotent are retried only when the failure
// happened before any of the request reached the server.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, idempotent bool) error {
	url := c.baseURL + path
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			c.logger.Debug("retrying request",
				"method", method,
				"path", path,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		sent, err := c.roundTrip(ctx, method, url, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return err
		}
		if sent && !idempotent {
			return fmt.Errorf("%s %s failed after the request was sent, not retrying: %w", method, path, err)
		}
		c.logger.Warn("request failed", "method", method, "path", path, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

// roundTrip performs one attempt. sent reports whether the request
// headers were written to a connection.
func (c *Client) roundTrip(ctx context.Context, method, url string, body []byte, out any) (bool, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	// The transport writes on its own goroutine.
	var wrote atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteHeaders: func() { wrote.Store(true) },
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), method, url, bodyReader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrote.Load(), err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	// Bugzilla reports some errors with a 200 status and an error flag.
	var envelope struct {
		Error   bool   `json:"error"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	decodeErr := json.Unmarshal(data, &envelope)
	if envelope.Error || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Message}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return true, apiErr
	}
	if decodeErr != nil {
		return true, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return true, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return true, nil
}
