// Package diarize uploads a recording to an HTTP diarization service
// (pyannote-style) and returns its speaker turns.
//
// The service receives a multipart POST with the audio under the "file" field
// and answers with a JSON timeline: a bare array of {start, end, speaker}
// objects or an object carrying them under "turns" or "segments".
package diarize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/services"
	"dubber/internal/speakers"
)

const defaultTimeout = 120 * time.Second

// Client posts recordings to the diarization endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient constructs a client. timeout <= 0 uses the default.
func NewClient(url string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{url: strings.TrimSpace(url), httpClient: httpClient}
}

// Diarize uploads audioPath and returns the sorted turns.
func (c *Client) Diarize(ctx context.Context, audioPath string) ([]speakers.Turn, error) {
	if c.url == "" {
		return nil, services.Wrap(services.ErrConfiguration, "diarize", "request", "service url required", nil)
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("diarize: create form: %w", err)
	}
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("diarize: open audio: %w", err)
	}
	_, err = io.Copy(part, file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("diarize: read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("diarize: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("diarize: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalService, "diarize", "request", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrExternalService, "diarize", "request",
			fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil)
	}
	turns, err := speakers.ParseTimelineJSON(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "diarize", "decode", "invalid timeline", err)
	}
	return turns, nil
}

// Source binds the client to one recording as a speakers.TimelineSource.
func (c *Client) Source(audioPath string) speakers.TimelineSource {
	return recordingSource{client: c, path: audioPath}
}

type recordingSource struct {
	client *Client
	path   string
}

func (s recordingSource) Timeline(ctx context.Context) ([]speakers.Turn, error) {
	return s.client.Diarize(ctx, s.path)
}
