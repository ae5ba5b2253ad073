package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeLLM()
	c.normalizeMT()
	if err := c.normalizeTTS(); err != nil {
		return err
	}
	c.normalizeDiarization()
	c.normalizeDubbing()
	c.normalizeTranslation()
	c.normalizeCache()
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	c.Audio.FFprobeBinary = strings.TrimSpace(c.Audio.FFprobeBinary)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstEnv("OPENROUTER_API_KEY", "OPENAI_API_KEY")
	}
}

func (c *Config) normalizeMT() {
	c.MT.BaseURL = strings.TrimRight(strings.TrimSpace(c.MT.BaseURL), "/")
	if c.MT.TimeoutSeconds <= 0 {
		c.MT.TimeoutSeconds = defaultMTTimeoutSeconds
	}
	c.MT.APIKey = strings.TrimSpace(c.MT.APIKey)
	if c.MT.APIKey == "" {
		c.MT.APIKey = firstEnv("LIBRETRANSLATE_API_KEY")
	}
}

func (c *Config) normalizeTTS() error {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.ModelID = strings.TrimSpace(c.TTS.ModelID)
	if c.TTS.ModelID == "" {
		c.TTS.ModelID = defaultTTSModelID
	}
	c.TTS.OutputFormat = strings.ToLower(strings.TrimSpace(c.TTS.OutputFormat))
	if c.TTS.OutputFormat == "" {
		c.TTS.OutputFormat = defaultTTSOutputFormat
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.MaxConcurrent <= 0 {
		c.TTS.MaxConcurrent = defaultTTSMaxConcurrent
	}
	if c.TTS.CatalogTimeoutSeconds <= 0 {
		c.TTS.CatalogTimeoutSeconds = defaultCatalogTimeoutSeconds
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = firstEnv("ELEVENLABS_API_KEY")
	}
	var err error
	if c.TTS.VoicesFile, err = expandPath(strings.TrimSpace(c.TTS.VoicesFile)); err != nil {
		return fmt.Errorf("tts.voices_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiarization() {
	c.Diarization.URL = strings.TrimRight(strings.TrimSpace(c.Diarization.URL), "/")
	if c.Diarization.TimeoutSeconds <= 0 {
		c.Diarization.TimeoutSeconds = defaultDiarizationTimeout
	}
	c.Diarization.DefaultSpeaker = strings.TrimSpace(c.Diarization.DefaultSpeaker)
	if c.Diarization.DefaultSpeaker == "" {
		c.Diarization.DefaultSpeaker = defaultSpeaker
	}
}

func (c *Config) normalizeDubbing() {
	c.Dubbing.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Dubbing.SourceLanguage))
	if c.Dubbing.SampleSegments <= 0 {
		c.Dubbing.SampleSegments = defaultSampleSegments
	}
	if c.Dubbing.MinSampleSeconds <= 0 {
		c.Dubbing.MinSampleSeconds = defaultMinSampleSeconds
	}
	if c.Dubbing.MinSegmentSeconds <= 0 {
		c.Dubbing.MinSegmentSeconds = defaultMinSegmentSeconds
	}
	if c.Dubbing.AnalysisSampleRate <= 0 {
		c.Dubbing.AnalysisSampleRate = defaultAnalysisSampleRate
	}
	if c.Dubbing.PlaceholderSeconds <= 0 {
		c.Dubbing.PlaceholderSeconds = defaultPlaceholderSeconds
	}
	if c.Dubbing.MaxTrackSeconds <= 0 {
		c.Dubbing.MaxTrackSeconds = defaultMaxTrackSeconds
	}
	if c.Dubbing.SilenceSeconds <= 0 {
		c.Dubbing.SilenceSeconds = defaultSilenceSeconds
	}
}

func (c *Config) normalizeTranslation() {
	markers := make([]string, 0, len(c.Translation.CorruptionMarkers))
	seen := make(map[string]struct{}, len(c.Translation.CorruptionMarkers))
	for _, marker := range c.Translation.CorruptionMarkers {
		marker = strings.TrimSpace(marker)
		if marker == "" {
			continue
		}
		if _, ok := seen[marker]; ok {
			continue
		}
		seen[marker] = struct{}{}
		markers = append(markers, marker)
	}
	c.Translation.CorruptionMarkers = markers
	if c.Translation.MinChars <= 0 {
		c.Translation.MinChars = defaultMinTranslationChars
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	c.Cache.RedisPassword = strings.TrimSpace(c.Cache.RedisPassword)
	if c.Cache.RedisPassword == "" {
		c.Cache.RedisPassword = firstEnv("DUBBER_REDIS_PASSWORD")
	}
	if c.Cache.RedisTTLHours < 0 {
		c.Cache.RedisTTLHours = 0
	}
	if c.Cache.MaxMiB < 0 {
		c.Cache.MaxMiB = 0
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
