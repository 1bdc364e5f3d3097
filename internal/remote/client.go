// Package remote talks to the transcription webhooks: one endpoint accepts
// submissions, the other reports job status.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"episode-mapper/internal/config"
	"episode-mapper/internal/domain"
)

const (
	// MessageStatusRetry is shown when a status check fails but polling continues.
	MessageStatusRetry = "Status check failed, retrying..."

	maxResponseBytes = 1 << 20
	userAgent        = "episode-mapper"

	msgMissingSubmitEndpoint = "Missing submit webhook configuration"
	msgMissingStatusEndpoint = "Missing status endpoint configuration"
	msgNoJobID               = "No job ID returned from submit webhook"
	msgSubmitFailed          = "Request failed"
	msgStatusFailed          = MessageStatusRetry
)

// Client issues submit and status-check requests.
type Client struct {
	submitURL  string
	statusURL  string
	httpClient *http.Client
	requestID  func() string
}

// NewClient builds a client from the injected configuration.
func NewClient(cfg config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout})
}

// NewClientWithHTTP builds a client with a caller-provided HTTP client.
func NewClientWithHTTP(cfg config.Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		submitURL:  strings.TrimSpace(cfg.SubmitEndpoint),
		statusURL:  strings.TrimSpace(cfg.StatusEndpoint),
		httpClient: httpClient,
		requestID:  uuid.NewString,
	}
}

type submitResponse struct {
	JobID    domain.FlexibleID `json:"jobID"`
	JobIDAlt domain.FlexibleID `json:"jobId"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Submit posts the submission and returns the job id assigned remotely.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (string, error) {
	if c.submitURL == "" {
		return "", &ConfigError{Setting: config.EnvSubmitEndpoint, Message: msgMissingSubmitEndpoint}
	}

	payload, err := json.Marshal(sub)
	if err != nil {
		return "", &SubmissionError{Message: msgSubmitFailed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, bytes.NewReader(payload))
	if err != nil {
		return "", &SubmissionError{Message: fmt.Sprintf("build submit request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	body, status, err := c.do(req)
	if err != nil {
		return "", &SubmissionError{Message: msgSubmitFailed + ": " + transportReason(err), Err: err}
	}
	if status < 200 || status > 299 {
		return "", &SubmissionError{StatusCode: status, Message: serverMessage(body, msgSubmitFailed)}
	}

	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &SubmissionError{Message: msgNoJobID, Err: err}
	}

	jobID := decoded.JobID.String()
	if jobID == "" {
		jobID = decoded.JobIDAlt.String()
	}
	if jobID == "" {
		return "", &SubmissionError{Message: msgNoJobID}
	}
	return jobID, nil
}

// PollStatus fetches the current status row for jobID. A nil result with nil
// error means the job is not visible yet.
func (c *Client) PollStatus(ctx context.Context, jobID string) (*domain.PollResult, error) {
	if c.statusURL == "" {
		return nil, &ConfigError{Setting: config.EnvStatusEndpoint, Message: msgMissingStatusEndpoint}
	}

	target, err := withQuery(c.statusURL, "jobId", jobID)
	if err != nil {
		return nil, &ConfigError{Setting: config.EnvStatusEndpoint, Message: fmt.Sprintf("Invalid status endpoint: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransientPollError{Message: msgStatusFailed, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	body, status, err := c.do(req)
	if err != nil {
		return nil, &TransientPollError{Message: msgStatusFailed, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &TransientPollError{StatusCode: status, Message: serverMessage(body, msgStatusFailed)}
	}

	row, err := decodeStatusRow(body)
	if err != nil {
		return nil, &TransientPollError{Message: msgStatusFailed, Err: err}
	}
	return row, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.requestID != nil {
		req.Header.Set("X-Request-ID", c.requestID())
	}
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// transportReason names why a request never got a response, short enough
// for a toast.
func transportReason(err error) string {
	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timed out"
	case errors.As(err, &dnsErr):
		return "host not found"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "could not connect"
	default:
		return "network error"
	}
}

// decodeStatusRow accepts a single object or an array whose first element is
// the row. Empty bodies, null and empty arrays mean "not visible yet".
func decodeStatusRow(body []byte) (*domain.PollResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var rows []*domain.PollResult
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode status rows: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}

	var row domain.PollResult
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return nil, fmt.Errorf("decode status row: %w", err)
	}
	return &row, nil
}

func serverMessage(body []byte, fallback string) string {
	var decoded errorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if msg := strings.TrimSpace(decoded.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

func withQuery(rawURL, key, value string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set(key, value)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
