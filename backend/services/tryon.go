// ABOUTME: Client for the virtual try-on inference API
// ABOUTME: Submits person/garment pairs and polls job status on a fixed, bounded interval

package services

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
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitcheck/fitcheck/backend/models"
)

var (
	ErrTryOnNotConfigured = errors.New("TRYON_API_URL is not set")
	ErrTryOnFailed        = errors.New("virtual try-on failed")
	ErrTryOnTimeout       = errors.New("virtual try-on timed out")
)

// TryOnClient talks to the inference API
type TryOnClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	interval    time.Duration
	maxAttempts int
	timeout     time.Duration
	sfGroup     singleflight.Group
}

// NewTryOnClient creates a client. Await polls every interval and gives up
// after maxAttempts polls or timeout, whichever comes first.
func NewTryOnClient(baseURL, apiKey string, interval time.Duration, maxAttempts int, timeout time.Duration) *TryOnClient {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 60
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &TryOnClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		interval:    interval,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (c *TryOnClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *TryOnClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

type tryOnRunRequest struct {
	ModelImage   string `json:"model_image"`
	GarmentImage string `json:"garment_image"`
	Category     string `json:"category,omitempty"`
}

type tryOnRunResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Submit starts a job and returns its id.
func (c *TryOnClient) Submit(ctx context.Context, req models.TryOnRequest) (string, error) {
	body := tryOnRunRequest{
		ModelImage:   req.PersonImageURL,
		GarmentImage: req.GarmentImageURL,
		Category:     req.Category,
	}

	var resp tryOnRunResponse
	if err := c.call(ctx, http.MethodPost, "/run", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrTryOnFailed, resp.Error)
		}
		return "", fmt.Errorf("%w: no job id returned", ErrTryOnFailed)
	}

	slog.Info("Try-on job submitted", "job_id", resp.ID)
	return resp.ID, nil
}

// Status fetches the current state of a job. Concurrent calls for the same
// job share one upstream request; a caller that cancels only stops its own wait.
func (c *TryOnClient) Status(ctx context.Context, jobID string) (*models.TryOnJob, error) {
	v, err := shareCall(ctx, &c.sfGroup, jobID, clientTimeout(c.httpClient), func(ctx context.Context) (interface{}, error) {
		var job models.TryOnJob
		if err := c.call(ctx, http.MethodGet, "/status/"+url.PathEscape(jobID), nil, &job); err != nil {
			return nil, err
		}
		if job.ID == "" {
			job.ID = jobID
		}
		return &job, nil
	})
	if err != nil {
		return nil, err
	}
	// Copy so callers sharing a flight can't race on Attempts
	job := *v.(*models.TryOnJob)
	return &job, nil
}

// Await polls until the job completes or fails. It stops at the first
// terminal state and never retries a failed job.
func (c *TryOnClient) Await(ctx context.Context, jobID string) (*models.TryOnJob, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		job, err := c.Status(pollCtx, jobID)
		if err != nil {
			return nil, c.pollError(ctx, pollCtx, err)
		}
		job.Attempts = attempt

		switch job.Status {
		case models.TryOnCompleted:
			if job.ResultURL() == "" {
				return job, fmt.Errorf("%w: completed without output", ErrTryOnFailed)
			}
			slog.Info("Try-on job completed", "job_id", jobID, "attempts", attempt)
			return job, nil
		case models.TryOnFailed:
			slog.Warn("Try-on job failed", "job_id", jobID, "attempts", attempt, "error", job.Error)
			return job, fmt.Errorf("%w: %s", ErrTryOnFailed, job.Error)
		}

		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-pollCtx.Done():
			return nil, c.pollError(ctx, pollCtx, pollCtx.Err())
		case <-ticker.C:
		}
	}

	slog.Warn("Try-on polling gave up", "job_id", jobID, "max_attempts", c.maxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrTryOnTimeout, c.maxAttempts)
}

// pollError distinguishes caller cancellation from the polling deadline.
func (c *TryOnClient) pollError(parent, pollCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if pollCtx.Err() != nil {
		return fmt.Errorf("%w after %s", ErrTryOnTimeout, c.timeout)
	}
	return err
}

func (c *TryOnClient) call(ctx context.Context, method, path string, body, out interface{}) error {
	if !c.Configured() {
		return ErrTryOnNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, JoinURL(c.baseURL, path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("try-on request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("try-on API returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from try-on API: %w", err)
	}
	return nil
}
