package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dubber/internal/config"
	"dubber/internal/services/llm"
	"dubber/internal/services/tts"
	"dubber/internal/synth"
	"dubber/internal/voices"
)

const httpCheckTimeout = 5 * time.Second

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError("LLM API", err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckMT verifies that the machine translation server answers its
// languages endpoint.
func CheckMT(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Machine translation"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	endpoint := base + "/languages"
	if key := strings.TrimSpace(apiKey); key != "" {
		endpoint += "?api_key=" + url.QueryEscape(key)
	}
	status, err := httpGet(ctx, endpoint)
	if err != nil {
		return Result{Name: name, Detail: summarizeError("MT server", err)}
	}
	switch {
	case status == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("languages check failed (%d)", status)}
	}
}

// CheckTTS fetches the synthesis voice catalog and reports how many voices
// and languages it offers.
func CheckTTS(ctx context.Context, cfg *config.Config) Result {
	const name = "Speech synthesis"

	timeout := time.Duration(cfg.TTS.CatalogTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		ModelID:        cfg.TTS.ModelID,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	return catalogResult(checkCtx, name, client)
}

// CheckVoicesFile parses the local voices catalog.
func CheckVoicesFile(ctx context.Context, path string) Result {
	return catalogResult(ctx, "Voices file", voices.FileSource(path))
}

func catalogResult(ctx context.Context, name string, source voices.Source) Result {
	descs, err := source.Voices(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError("voice catalog", err)}
	}
	catalog, err := voices.NewCatalog(descs)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if catalog.Len() == 0 {
		return Result{Name: name, Detail: "catalog is empty"}
	}
	langs := catalog.Languages()
	codes := make([]string, 0, len(langs))
	for _, l := range langs {
		codes = append(codes, l.String())
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%d voices (%s)", catalog.Len(), strings.Join(codes, ", ")),
	}
}

// CheckDiarization verifies that the diarization service answers. Any
// response below 500 counts as reachable since the service has no fixed
// health route.
func CheckDiarization(ctx context.Context, serviceURL string) Result {
	const name = "Diarization"

	status, err := httpGet(ctx, serviceURL)
	if err != nil {
		return Result{Name: name, Detail: summarizeError("diarization service", err)}
	}
	if status >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("service error (%d)", status)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckRedis pings the configured Redis cache.
func CheckRedis(ctx context.Context, cfg *config.Config) Result {
	const name = "Redis cache"

	client, err := synth.DialRedis(ctx, synth.RedisOptions{
		Addr:        cfg.Cache.RedisAddr,
		Password:    cfg.Cache.RedisPassword,
		DB:          cfg.Cache.RedisDB,
		DialTimeout: httpCheckTimeout,
	})
	if err != nil {
		return Result{Name: name, Detail: summarizeError("redis", err)}
	}
	_ = client.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.Cache.RedisAddr)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func httpGet(ctx context.Context, endpoint string) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	client := &http.Client{Timeout: httpCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// summarizeError produces a human-readable summary for check failures.
func summarizeError(what string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("check timed out (%s unresponsive)", what)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("check timed out (%s unreachable)", what)
	}
	return err.Error()
}
