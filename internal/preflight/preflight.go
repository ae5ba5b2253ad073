package preflight

import (
	"context"
	"strings"

	"dubber/internal/config"
	"dubber/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Blocking reports whether a failed result should stop a job.
func (r Result) Blocking() bool {
	return !r.Passed && !r.Optional
}

// RunAll executes all applicable preflight checks for the given config.
// Unconfigured backends are reported as skipped optional checks.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Cache.Backend == "file" {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Detail:   status.Detail,
			Optional: status.Optional,
		})
	}

	if cfg.LLMConfigured() {
		results = append(results, optional(CheckLLM(ctx, "Translation LLM", cfg.GetLLM())))
	} else {
		results = append(results, skipped("Translation LLM", "not configured"))
	}

	if cfg.MTConfigured() {
		results = append(results, optional(CheckMT(ctx, cfg.MT.BaseURL, cfg.MT.APIKey)))
	} else {
		results = append(results, skipped("Machine translation", "disabled"))
	}

	if cfg.TTSConfigured() {
		results = append(results, CheckTTS(ctx, cfg))
	} else {
		results = append(results, skipped("Speech synthesis", "API key missing; segments will be silent"))
	}

	if path := strings.TrimSpace(cfg.TTS.VoicesFile); path != "" {
		results = append(results, CheckVoicesFile(ctx, path))
	}

	if url := strings.TrimSpace(cfg.Diarization.URL); url != "" {
		results = append(results, optional(CheckDiarization(ctx, url)))
	}

	if cfg.Cache.Backend == "redis" {
		results = append(results, CheckRedis(ctx, cfg))
	}

	return results
}

func optional(r Result) Result {
	r.Optional = true
	return r
}

func skipped(name, detail string) Result {
	return Result{Name: name, Detail: detail, Optional: true}
}

// CheckSystemDeps checks the audio tool binaries named by cfg.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.Check(ctx, deps.AudioTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
