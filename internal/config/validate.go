package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDubbing(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateMT(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateDubbing() error {
	d := c.Dubbing
	if d.WordsPerMinute <= 0 {
		return errors.New("dubbing.words_per_minute must be positive")
	}
	if d.Tolerance < 0 || d.Tolerance >= 1 {
		return errors.New("dubbing.tolerance must be in [0, 1)")
	}
	if d.MaxSpeedAdjustment <= 0 || d.MaxSpeedAdjustment >= 1 {
		return errors.New("dubbing.max_speed_adjustment must be in (0, 1)")
	}
	if d.Workers < 1 {
		return errors.New("dubbing.workers must be >= 1")
	}
	if d.SampleRate < 8000 {
		return errors.New("dubbing.sample_rate must be >= 8000")
	}
	if d.AnalysisSampleRate < 8000 {
		return errors.New("dubbing.analysis_sample_rate must be >= 8000")
	}
	return nil
}

func (c *Config) validateDiarization() error {
	if c.Diarization.GapThresholdSeconds <= 0 {
		return errors.New("diarization.gap_threshold_seconds must be positive")
	}
	if c.Diarization.SpeakerPool < 1 {
		return errors.New("diarization.speaker_pool must be >= 1")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.Stability < 0 || c.TTS.Stability > 1 {
		return errors.New("tts.stability must be between 0 and 1")
	}
	if c.TTS.SimilarityBoost < 0 || c.TTS.SimilarityBoost > 1 {
		return errors.New("tts.similarity_boost must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMT() error {
	if c.MT.Enabled && strings.TrimSpace(c.MT.BaseURL) == "" {
		return errors.New("mt.base_url must be set when mt.enabled is true")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "file", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be file, redis, or none, got %q", c.Cache.Backend)
	}
	return nil
}
