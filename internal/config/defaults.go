package config

const (
	defaultConfigPath            = "~/.config/dubber/config.toml"
	defaultOutputDir             = "~/.local/share/dubber/output"
	defaultLogDir                = "~/.local/share/dubber/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 50
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 60
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/dubber/dubber"
	defaultLLMTitle              = "Dubber Translator"
	defaultLLMTimeoutSeconds     = 60
	defaultLLMTemperature        = 0.3
	defaultMTBaseURL             = "http://127.0.0.1:5000"
	defaultMTTimeoutSeconds      = 30
	defaultTTSBaseURL            = "https://api.elevenlabs.io"
	defaultTTSModelID            = "eleven_multilingual_v2"
	defaultTTSOutputFormat       = "pcm_24000"
	defaultTTSStability          = 0.5
	defaultTTSSimilarityBoost    = 0.75
	defaultTTSTimeoutSeconds     = 60
	defaultTTSMaxConcurrent      = 4
	defaultCatalogTimeoutSeconds = 15
	defaultDiarizationTimeout    = 120
	defaultGapThresholdSeconds   = 2.0
	defaultSpeakerPool           = 2
	defaultSpeaker               = "SPEAKER_00"
	defaultWordsPerMinute        = 150
	defaultTolerance             = 0.10
	defaultMaxSpeedAdjustment    = 0.30
	defaultSampleSegments        = 3
	defaultMinSampleSeconds      = 0.5
	defaultMinSegmentSeconds     = 0.1
	defaultWorkers               = 4
	defaultSampleRate            = 24000
	defaultAnalysisSampleRate    = 16000
	defaultPlaceholderSeconds    = 1.0
	defaultMaxTrackSeconds       = 6 * 60 * 60
	defaultSilenceSeconds        = 0.1
	defaultMinTranslationChars   = 2
	defaultCacheBackend          = "file"
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultRedisTTLHours         = 24 * 30
	defaultCacheMaxMiB           = 2048
)

var defaultCorruptionMarkers = []string{"Anterior:"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	markers := make([]string, len(defaultCorruptionMarkers))
	copy(markers, defaultCorruptionMarkers)
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir(),
			LogDir:    defaultLogDir,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
		},
		MT: MT{
			BaseURL:        defaultMTBaseURL,
			TimeoutSeconds: defaultMTTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:               defaultTTSBaseURL,
			ModelID:               defaultTTSModelID,
			OutputFormat:          defaultTTSOutputFormat,
			Stability:             defaultTTSStability,
			SimilarityBoost:       defaultTTSSimilarityBoost,
			TimeoutSeconds:        defaultTTSTimeoutSeconds,
			MaxConcurrent:         defaultTTSMaxConcurrent,
			CatalogTimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		Diarization: Diarization{
			TimeoutSeconds:      defaultDiarizationTimeout,
			GapThresholdSeconds: defaultGapThresholdSeconds,
			SpeakerPool:         defaultSpeakerPool,
			DefaultSpeaker:      defaultSpeaker,
		},
		Dubbing: Dubbing{
			WordsPerMinute:     defaultWordsPerMinute,
			Tolerance:          defaultTolerance,
			MaxSpeedAdjustment: defaultMaxSpeedAdjustment,
			SampleSegments:     defaultSampleSegments,
			MinSampleSeconds:   defaultMinSampleSeconds,
			MinSegmentSeconds:  defaultMinSegmentSeconds,
			Workers:            defaultWorkers,
			SampleRate:         defaultSampleRate,
			AnalysisSampleRate: defaultAnalysisSampleRate,
			PlaceholderSeconds: defaultPlaceholderSeconds,
			MaxTrackSeconds:    defaultMaxTrackSeconds,
			SilenceSeconds:     defaultSilenceSeconds,
		},
		Translation: Translation{
			CorruptionMarkers: markers,
			MinChars:          defaultMinTranslationChars,
			RejectEcho:        true,
		},
		Cache: Cache{
			Backend:       defaultCacheBackend,
			Index:         true,
			RedisAddr:     defaultRedisAddr,
			RedisTTLHours: defaultRedisTTLHours,
			MaxMiB:        defaultCacheMaxMiB,
		},
	}
}
