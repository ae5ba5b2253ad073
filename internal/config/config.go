package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
	LogDir    string `toml:"log_dir"`
}

// Logging contains configuration for log output and file rotation.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// LLM contains the generative translation backend (OpenRouter or any
// OpenAI-compatible chat completions endpoint).
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
}

// MT contains the plain machine-translation backend (LibreTranslate API).
type MT struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains the speech synthesis backend and voice catalog settings.
type TTS struct {
	APIKey                string  `toml:"api_key"`
	BaseURL               string  `toml:"base_url"`
	ModelID               string  `toml:"model_id"`
	OutputFormat          string  `toml:"output_format"`
	Stability             float64 `toml:"stability"`
	SimilarityBoost       float64 `toml:"similarity_boost"`
	TimeoutSeconds        int     `toml:"timeout_seconds"`
	MaxConcurrent         int     `toml:"max_concurrent"`
	CatalogTimeoutSeconds int     `toml:"catalog_timeout_seconds"`
	// VoicesFile is a local YAML or JSON catalog used when the remote
	// catalog is unavailable or empty.
	VoicesFile string `toml:"voices_file"`
}

// Diarization contains the speaker timeline service and the heuristics used
// when no timeline is available.
type Diarization struct {
	URL                 string  `toml:"url"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	GapThresholdSeconds float64 `toml:"gap_threshold_seconds"`
	SpeakerPool         int     `toml:"speaker_pool"`
	DefaultSpeaker      string  `toml:"default_speaker"`
}

// Dubbing contains the timing and budgeting knobs of the pipeline.
type Dubbing struct {
	SourceLanguage     string  `toml:"source_language"`
	WordsPerMinute     int     `toml:"words_per_minute"`
	Tolerance          float64 `toml:"tolerance"`
	MaxSpeedAdjustment float64 `toml:"max_speed_adjustment"`
	SampleSegments     int     `toml:"sample_segments"`
	MinSampleSeconds   float64 `toml:"min_sample_seconds"`
	MinSegmentSeconds  float64 `toml:"min_segment_seconds"`
	Workers            int     `toml:"workers"`
	SampleRate         int     `toml:"sample_rate"`
	AnalysisSampleRate int     `toml:"analysis_sample_rate"`
	PlaceholderSeconds float64 `toml:"placeholder_seconds"`
	MaxTrackSeconds    float64 `toml:"max_track_seconds"`
	SilenceSeconds     float64 `toml:"silence_seconds"`
}

// Translation contains the output quality predicates.
type Translation struct {
	CorruptionMarkers []string `toml:"corruption_markers"`
	MinChars          int      `toml:"min_chars"`
	RejectEcho        bool     `toml:"reject_echo"`
}

// Cache contains the synthesis cache backend.
type Cache struct {
	// Backend is one of file, redis, none.
	Backend       string `toml:"backend"`
	Index         bool   `toml:"index"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisTTLHours int    `toml:"redis_ttl_hours"`
	MaxMiB        int    `toml:"max_mib"`
}

// Audio contains external audio tool locations.
type Audio struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Config encapsulates all configuration values for dubber.
//
// Configuration sections by subsystem:
//   - Paths: output, cache, and log directories
//   - Logging: log format, level, and rotation
//   - LLM: constrained translation backend
//   - MT: plain machine translation backend
//   - TTS: synthesis backend and voice catalog
//   - Diarization: speaker timeline service and fallback heuristics
//   - Dubbing: duration budgeting and timing envelope
//   - Translation: quality rejection rules
//   - Cache: synthesis cache backend
//   - Audio: ffmpeg/ffprobe binaries
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	LLM         LLM         `toml:"llm"`
	MT          MT          `toml:"mt"`
	TTS         TTS         `toml:"tts"`
	Diarization Diarization `toml:"diarization"`
	Dubbing     Dubbing     `toml:"dubbing"`
	Translation Translation `toml:"translation"`
	Cache       Cache       `toml:"cache"`
	Audio       Audio       `toml:"audio"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, cache, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decoding and stretching.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Audio.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for source inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Audio.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// SynthCacheDir is the directory holding cached synthesis clips.
func (c *Config) SynthCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "tts")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "dubber")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/dubber"
	}
	return filepath.Join(home, ".cache", "dubber")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the generative backend connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		Temperature:    c.LLM.Temperature,
	}
}

// LLMConfigured reports whether the generative translation tier can run.
func (c *Config) LLMConfigured() bool {
	return strings.TrimSpace(c.LLM.APIKey) != "" && strings.TrimSpace(c.LLM.Model) != ""
}

// MTConfigured reports whether the machine translation tier can run.
func (c *Config) MTConfigured() bool {
	return c.MT.Enabled && strings.TrimSpace(c.MT.BaseURL) != ""
}

// TTSConfigured reports whether speech synthesis can run. Without it every
// segment is rendered as silence.
func (c *Config) TTSConfigured() bool {
	return strings.TrimSpace(c.TTS.APIKey) != ""
}

const redactedSecret = "********"

// Redacted returns a copy with API keys and passwords masked.
func (c Config) Redacted() Config {
	for _, secret := range []*string{&c.LLM.APIKey, &c.MT.APIKey, &c.TTS.APIKey, &c.Cache.RedisPassword} {
		if *secret != "" {
			*secret = redactedSecret
		}
	}
	return c
}

// DubbingOptions carries the pipeline timing knobs in typed form.
type DubbingOptions struct {
	SourceLanguage      string
	WordsPerMinute      int
	Tolerance           float64
	MaxSpeedAdjustment  float64
	SampleSegments      int
	MinSampleDuration   time.Duration
	MinSegmentDuration  time.Duration
	Workers             int
	SampleRate          int
	AnalysisSampleRate  int
	Placeholder         time.Duration
	MaxTrack            time.Duration
	Silence             time.Duration
	GapThreshold        time.Duration
	SpeakerPool         int
	DefaultSpeaker      string
	DiarizationTimeout  time.Duration
	CatalogTimeout      time.Duration
	SynthesisTimeout    time.Duration
	CorruptionMarkers   []string
	MinTranslationChars int
	RejectEcho          bool
}

// DubbingOptions returns the pipeline settings with seconds converted to durations.
func (c *Config) DubbingOptions() DubbingOptions {
	markers := make([]string, len(c.Translation.CorruptionMarkers))
	copy(markers, c.Translation.CorruptionMarkers)
	return DubbingOptions{
		SourceLanguage:      c.Dubbing.SourceLanguage,
		WordsPerMinute:      c.Dubbing.WordsPerMinute,
		Tolerance:           c.Dubbing.Tolerance,
		MaxSpeedAdjustment:  c.Dubbing.MaxSpeedAdjustment,
		SampleSegments:      c.Dubbing.SampleSegments,
		MinSampleDuration:   seconds(c.Dubbing.MinSampleSeconds),
		MinSegmentDuration:  seconds(c.Dubbing.MinSegmentSeconds),
		Workers:             c.Dubbing.Workers,
		SampleRate:          c.Dubbing.SampleRate,
		AnalysisSampleRate:  c.Dubbing.AnalysisSampleRate,
		Placeholder:         seconds(c.Dubbing.PlaceholderSeconds),
		MaxTrack:            seconds(c.Dubbing.MaxTrackSeconds),
		Silence:             seconds(c.Dubbing.SilenceSeconds),
		GapThreshold:        seconds(c.Diarization.GapThresholdSeconds),
		SpeakerPool:         c.Diarization.SpeakerPool,
		DefaultSpeaker:      c.Diarization.DefaultSpeaker,
		DiarizationTimeout:  time.Duration(c.Diarization.TimeoutSeconds) * time.Second,
		CatalogTimeout:      time.Duration(c.TTS.CatalogTimeoutSeconds) * time.Second,
		SynthesisTimeout:    time.Duration(c.TTS.TimeoutSeconds) * time.Second,
		CorruptionMarkers:   markers,
		MinTranslationChars: c.Translation.MinChars,
		RejectEcho:          c.Translation.RejectEcho,
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
