package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dubber/internal/audio"
	"dubber/internal/language"
	"dubber/internal/services"
	"dubber/internal/voices"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io"
	defaultModelID      = "eleven_multilingual_v2"
	defaultOutputFormat = "pcm_24000"
	defaultTimeout      = 60 * time.Second
	maxAudioBytes       = 64 << 20
)

// Config describes the synthesis backend.
type Config struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	OutputFormat    string
	Stability       float64
	SimilarityBoost float64
	TimeoutSeconds  int
}

// Decoder turns encoded audio bytes into a clip at sampleRate.
type Decoder interface {
	Decode(ctx context.Context, data []byte, sampleRate int) (audio.Clip, error)
}

// Client talks to the synthesis API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	decoder    Decoder
	sampleRate int
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

// WithDecoder sets the decoder used for non-PCM output formats, producing
// clips at sampleRate.
func WithDecoder(decoder Decoder, sampleRate int) Option {
	return func(c *Client) {
		c.decoder = decoder
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
	}
}

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = defaultModelID
	}
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}, sampleRate: 24000}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// PCMRate returns the sample rate encoded in a pcm_<rate> output format.
func PCMRate(format string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(format)), "pcm_")
	if !ok {
		return 0, false
	}
	rate, err := strconv.Atoi(rest)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize renders text with voiceID.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (audio.Clip, error) {
	if !c.Configured() {
		return audio.Clip{}, services.Wrap(services.ErrConfiguration, "synthesize", "tts", "api key required", nil)
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return audio.Clip{}, errors.New("tts synthesize: voice id required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voiceID)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts synthesize: build url: %w", err)
	}
	endpoint += "?" + url.Values{"output_format": {c.cfg.OutputFormat}}.Encode()

	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts synthesize: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("tts synthesize: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	data, err := c.do(ctx, req, "synthesize")
	if err != nil {
		return audio.Clip{}, err
	}
	if len(data) == 0 {
		return audio.Clip{}, services.Wrap(services.ErrExternalService, "synthesize", "tts", "empty audio", nil)
	}
	if rate, ok := PCMRate(c.cfg.OutputFormat); ok {
		clip, err := audio.DecodeS16LE(data, rate)
		if err != nil {
			return audio.Clip{}, services.Wrap(services.ErrExternalService, "synthesize", "tts", "decode pcm", err)
		}
		return clip, nil
	}
	if c.decoder == nil {
		return audio.Clip{}, services.Wrap(services.ErrConfiguration, "synthesize", "tts",
			fmt.Sprintf("output format %s needs a decoder", c.cfg.OutputFormat), nil)
	}
	clip, err := c.decoder.Decode(ctx, data, c.sampleRate)
	if err != nil {
		if ctx.Err() != nil {
			return audio.Clip{}, ctx.Err()
		}
		return audio.Clip{}, services.Wrap(services.ErrExternalService, "synthesize", "tts", "decode audio", err)
	}
	return clip, nil
}

type voicesResponse struct {
	Voices []struct {
		VoiceID           string            `json:"voice_id"`
		Name              string            `json:"name"`
		Labels            map[string]string `json:"labels"`
		VerifiedLanguages []struct {
			Language string `json:"language"`
			Locale   string `json:"locale"`
		} `json:"verified_languages"`
	} `json:"voices"`
}

// Voices fetches the voice catalog. Voices without verified languages are
// returned with no languages and so never become eligible.
func (c *Client) Voices(ctx context.Context) ([]voices.Descriptor, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "match", "tts voices", "api key required", nil)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "voices")
	if err != nil {
		return nil, fmt.Errorf("tts voices: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tts voices: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	data, err := c.do(ctx, req, "voices")
	if err != nil {
		return nil, err
	}
	var decoded voicesResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "match", "tts voices", "decode response", err)
	}
	out := make([]voices.Descriptor, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		desc := voices.Descriptor{ID: v.VoiceID, Name: v.Name, Attributes: v.Labels}
		for _, vl := range v.VerifiedLanguages {
			code := language.ToISO2(vl.Language)
			if code == "" {
				code = language.ToISO2(vl.Locale)
			}
			if code != "" {
				desc.Languages = append(desc.Languages, language.Code(code))
			}
		}
		out = append(out, desc)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalService, "tts", op, "request failed", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalService, "tts", op, "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, services.Wrap(services.ErrExternalService, "tts", op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet), nil)
	}
	return data, nil
}
