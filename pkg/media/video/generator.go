// Package video renders short clips for the quick-video mode through an
// asynchronous job API: submit a job, then poll until it settles.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrJobFailed = errors.New("video job failed")

type Request struct {
	Prompt          string `json:"prompt"`
	Model           string `json:"model,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
}

type Clip struct {
	JobID           string `json:"id"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Clip, error)
}

type HTTPGenerator struct {
	BaseURL      string
	APIKey       string
	Client       *http.Client
	PollInterval time.Duration
}

var _ Generator = &HTTPGenerator{}

func NewHTTPGenerator(baseURL, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Client:       &http.Client{Timeout: timeout},
		PollInterval: 2 * time.Second,
	}
}

type jobResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"` // queued, running, succeeded, failed
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
	Error           string `json:"error"`
}

// Generate blocks until the job settles or ctx is done.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Clip, error) {
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = 5
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Clip{}, fmt.Errorf("marshal request: %w", err)
	}

	job, err := g.do(ctx, http.MethodPost, "/v1/videos", payload)
	if err != nil {
		return Clip{}, fmt.Errorf("submit video job: %w", err)
	}

	ticker := time.NewTicker(g.PollInterval)
	defer ticker.Stop()
	for {
		switch job.Status {
		case "succeeded":
			return Clip{JobID: job.ID, URL: job.URL, DurationSeconds: job.DurationSeconds}, nil
		case "failed":
			return Clip{}, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
		}

		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-ticker.C:
		}

		id := job.ID
		job, err = g.do(ctx, http.MethodGet, "/v1/videos/"+id, nil)
		if err != nil {
			return Clip{}, fmt.Errorf("poll video job %s: %w", id, err)
		}
	}
}

func (g *HTTPGenerator) do(ctx context.Context, method, path string, body []byte) (*jobResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(data))
	}

	var job jobResponse
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &job, nil
}
