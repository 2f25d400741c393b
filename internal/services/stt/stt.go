// Package stt drives the speech-to-text server: upload, status polling, and
// result retrieval.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"reelvault/internal/logging"
	"reelvault/internal/subtitles"
)

// Result is the transcription outcome. When Degraded is set, Text holds a
// human-readable failure notice instead of a transcript and Segments is
// empty; the job continues and the notice flows downstream so operators see
// what happened without losing the video.
type Result struct {
	Text     string
	Segments []subtitles.Segment
	Degraded bool
}

// Client talks to the transcription server.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIURL       string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     int
}

// NewClient builds a transcription client. MaxPolls bounds the polling loop
// so a stuck server job cannot wedge the worker forever.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 900
	}
	return &Client{
		baseURL:      opts.APIURL,
		apiKey:       opts.APIKey,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		httpClient:   &http.Client{},
		logger:       logger,
	}
}

// Transcribe uploads the audio file, polls until the server finishes, and
// fetches the transcript with its time-aligned segments. Failures degrade
// into a notice Result rather than an error.
func (c *Client) Transcribe(ctx context.Context, audioPath string) Result {
	if c.baseURL == "" || c.apiKey == "" {
		return degraded("Error: STT Server Configuration Missing.")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return degraded("Error: Audio file not found.")
	}

	logger := logging.WithContext(ctx, c.logger)
	jobID, err := c.upload(ctx, audioPath)
	if err != nil {
		logger.Warn("transcription upload failed", logging.Error(err))
		return degraded(fmt.Sprintf("Error: %v", err))
	}
	logger.Info("transcription job accepted", logging.String("stt_job_id", jobID))

	if err := c.waitForCompletion(ctx, jobID); err != nil {
		logger.Warn("transcription did not complete", logging.Error(err))
		return degraded(fmt.Sprintf("Error: %v", err))
	}

	result, err := c.fetchResult(ctx, jobID)
	if err != nil {
		logger.Warn("transcription result fetch failed", logging.Error(err))
		return degraded(fmt.Sprintf("Error: %v", err))
	}
	return result
}

func degraded(notice string) Result {
	return Result{Text: notice, Degraded: true}
}

func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Upload Failed (%d)", resp.StatusCode)
	}
	var accepted struct {
		JobID         string `json:"job_id"`
		QueuePosition int    `json:"queue_position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if accepted.JobID == "" {
		return "", fmt.Errorf("upload response missing job id")
	}
	c.logger.Debug("transcription queued",
		logging.String("stt_job_id", accepted.JobID),
		logging.Int("queue_position", accepted.QueuePosition))
	return accepted.JobID, nil
}

func (c *Client) waitForCompletion(ctx context.Context, jobID string) error {
	statusURL := fmt.Sprintf("%s/transcribe/job/%s", c.baseURL, jobID)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for polls := 0; polls < c.maxPolls; polls++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, serverErr, err := c.pollStatus(ctx, statusURL)
		if err != nil {
			return err
		}
		switch status {
		case "completed":
			return nil
		case "failed":
			return fmt.Errorf("Transcription Failed (%s)", serverErr)
		default:
			// queued or processing; keep waiting.
		}
	}
	return fmt.Errorf("transcription timed out after %d polls", c.maxPolls)
}

func (c *Client) pollStatus(ctx context.Context, statusURL string) (status, serverErr string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	var state struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", "", fmt.Errorf("decode status: %w", err)
	}
	return state.Status, state.Error, nil
}

func (c *Client) fetchResult(ctx context.Context, jobID string) (Result, error) {
	resultURL := fmt.Sprintf("%s/transcribe/job/%s/result", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("result request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("result fetch failed (%d)", resp.StatusCode)
	}
	var payload struct {
		Text     string              `json:"text"`
		Segments []subtitles.Segment `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return Result{Text: payload.Text, Segments: payload.Segments}, nil
}
