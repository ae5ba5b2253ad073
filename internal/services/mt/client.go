// Package mt talks to LibreTranslate-compatible machine translation servers.
// It is the unconstrained translation tier: plain text in, plain text out.
package mt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dubber/internal/services"
)

const defaultTimeout = 20 * time.Second

// Config describes the MT endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client issues translation requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for the configured server.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate converts text into target. An empty source asks the server to
// detect the language.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.baseURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "mt", "translate", "base url required", nil)
	}
	if strings.TrimSpace(target) == "" {
		return "", errors.New("mt translate: target language required")
	}
	if strings.TrimSpace(source) == "" {
		source = "auto"
	}
	endpoint, err := url.JoinPath(c.baseURL, "translate")
	if err != nil {
		return "", fmt.Errorf("mt translate: build url: %w", err)
	}
	body, err := json.Marshal(translateRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: c.apiKey})
	if err != nil {
		return "", fmt.Errorf("mt translate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("mt translate: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalService, "mt", "translate", "request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "mt", "translate", "read body", err)
	}
	var decoded translateResponse
	_ = json.Unmarshal(raw, &decoded)
	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(decoded.Error)
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return "", services.Wrap(services.ErrExternalService, "mt", "translate",
			fmt.Sprintf("http %d: %s", resp.StatusCode, detail), nil)
	}
	if decoded.Error != "" {
		return "", services.Wrap(services.ErrExternalService, "mt", "translate", decoded.Error, nil)
	}
	return decoded.TranslatedText, nil
}
