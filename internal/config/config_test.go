package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dubber/internal/config"
)

func clearBackendEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "LIBRETRANSLATE_API_KEY", "DUBBER_REDIS_PASSWORD", "XDG_CACHE_HOME"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearBackendEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "dubber", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "dubber", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, ".cache", "dubber") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.Dubbing.WordsPerMinute != 150 || cfg.Dubbing.MaxSpeedAdjustment != 0.30 {
		t.Fatalf("unexpected dubbing defaults: %+v", cfg.Dubbing)
	}
	if cfg.Diarization.DefaultSpeaker != "SPEAKER_00" || cfg.Diarization.SpeakerPool != 2 {
		t.Fatalf("unexpected diarization defaults: %+v", cfg.Diarization)
	}
	if cfg.LLMConfigured() {
		t.Fatal("expected LLM tier unconfigured without API key")
	}
	if cfg.MTConfigured() {
		t.Fatal("expected MT tier disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearBackendEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dubber.toml")

	type payload struct {
		Dubbing struct {
			WordsPerMinute int `toml:"words_per_minute"`
			Workers        int `toml:"workers"`
		} `toml:"dubbing"`
		Cache struct {
			Backend   string `toml:"backend"`
			RedisAddr string `toml:"redis_addr"`
		} `toml:"cache"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Dubbing.WordsPerMinute = 170
	custom.Dubbing.Workers = 8
	custom.Cache.Backend = "Redis"
	custom.Cache.RedisAddr = "cache:6379"
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Dubbing.WordsPerMinute != 170 || cfg.Dubbing.Workers != 8 {
		t.Fatalf("expected dubbing overrides, got %+v", cfg.Dubbing)
	}
	if cfg.Cache.Backend != "redis" {
		t.Fatalf("expected lowercased backend, got %q", cfg.Cache.Backend)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", cfg.Logging.Format)
	}
	if cfg.Dubbing.Tolerance != config.Default().Dubbing.Tolerance {
		t.Fatalf("expected untouched default tolerance, got %v", cfg.Dubbing.Tolerance)
	}
}

func TestEnvFallbacksFillMissingKeys(t *testing.T) {
	clearBackendEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dubber.toml")
	if err := os.WriteFile(configPath, []byte("[tts]\napi_key = \"file-tts\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("ELEVENLABS_API_KEY", "env-tts")
	t.Setenv("LIBRETRANSLATE_API_KEY", "env-mt")
	t.Setenv("DUBBER_REDIS_PASSWORD", "env-redis")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-openai" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.APIKey != "file-tts" {
		t.Errorf("expected file TTS key to win, got %q", cfg.TTS.APIKey)
	}
	if cfg.MT.APIKey != "env-mt" {
		t.Errorf("expected MT key from env, got %q", cfg.MT.APIKey)
	}
	if cfg.Cache.RedisPassword != "env-redis" {
		t.Errorf("expected redis password from env, got %q", cfg.Cache.RedisPassword)
	}
	if !cfg.LLMConfigured() {
		t.Error("expected LLM tier configured")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.CacheDir, "dubber") {
		t.Fatalf("expected cache dir to contain dubber, got %q", cfg.Paths.CacheDir)
	}
	if cfg.Dubbing.WordsPerMinute != config.Default().Dubbing.WordsPerMinute {
		t.Fatalf("sample words_per_minute drifted from defaults: %d", cfg.Dubbing.WordsPerMinute)
	}
	if cfg.Dubbing.SampleRate != config.Default().Dubbing.SampleRate {
		t.Fatalf("sample sample_rate drifted from defaults: %d", cfg.Dubbing.SampleRate)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"words per minute", func(c *config.Config) { c.Dubbing.WordsPerMinute = 0 }},
		{"max speed adjustment", func(c *config.Config) { c.Dubbing.MaxSpeedAdjustment = 1.0 }},
		{"tolerance", func(c *config.Config) { c.Dubbing.Tolerance = 1.0 }},
		{"workers", func(c *config.Config) { c.Dubbing.Workers = 0 }},
		{"sample rate", func(c *config.Config) { c.Dubbing.SampleRate = 4000 }},
		{"gap threshold", func(c *config.Config) { c.Diarization.GapThresholdSeconds = 0 }},
		{"speaker pool", func(c *config.Config) { c.Diarization.SpeakerPool = 0 }},
		{"cache backend", func(c *config.Config) { c.Cache.Backend = "memcached" }},
		{"redis without address", func(c *config.Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"mt without url", func(c *config.Config) { c.MT.Enabled = true; c.MT.BaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestDubbingOptionsConvertsSeconds(t *testing.T) {
	cfg := config.Default()
	opts := cfg.DubbingOptions()
	if opts.GapThreshold != 2*time.Second {
		t.Fatalf("unexpected gap threshold %v", opts.GapThreshold)
	}
	if opts.MinSampleDuration != 500*time.Millisecond {
		t.Fatalf("unexpected min sample duration %v", opts.MinSampleDuration)
	}
	if opts.Silence != 100*time.Millisecond {
		t.Fatalf("unexpected silence %v", opts.Silence)
	}
	if opts.MaxTrack != 6*time.Hour {
		t.Fatalf("unexpected max track %v", opts.MaxTrack)
	}
	opts.CorruptionMarkers[0] = "mutated"
	if cfg.Translation.CorruptionMarkers[0] != "Anterior:" {
		t.Fatal("DubbingOptions must copy corruption markers")
	}
}

func TestRedactedMasksSecretsOnly(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-live"
	cfg.TTS.APIKey = "el-key"
	cfg.MT.APIKey = ""

	masked := cfg.Redacted()
	if masked.LLM.APIKey == "sk-live" || masked.TTS.APIKey == "el-key" {
		t.Fatalf("expected secrets masked, got %+v %+v", masked.LLM, masked.TTS)
	}
	if masked.MT.APIKey != "" {
		t.Fatalf("expected empty secret to stay empty, got %q", masked.MT.APIKey)
	}
	if cfg.LLM.APIKey != "sk-live" {
		t.Fatal("Redacted mutated the receiver")
	}
	if masked.LLM.Model != cfg.LLM.Model {
		t.Fatalf("expected non-secret fields preserved")
	}
}
