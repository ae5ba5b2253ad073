package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dubber/internal/audio"
	"dubber/internal/config"
	"dubber/internal/language"
	"dubber/internal/media/ffprobe"
	"dubber/internal/metrics"
	"dubber/internal/services"
	"dubber/internal/services/diarize"
	"dubber/internal/services/llm"
	"dubber/internal/services/mt"
	"dubber/internal/services/tts"
	"dubber/internal/speakers"
	"dubber/internal/synth"
	"dubber/internal/translate"
	"dubber/internal/voices"
)

// Catalog source names.
const (
	CatalogSourceTTS  = "tts"
	CatalogSourceFile = "file"
)

// Runtime is a configured pipeline plus the resources it owns.
type Runtime struct {
	Pipeline *Pipeline
	Metrics  *metrics.Metrics
	LLM      *llm.Client
	TTS      *tts.Client
	Cache    synth.Cache
	closers  []func() error
}

// Close releases cache connections and indexes.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires every collaborator from cfg. Unconfigured optional backends are
// left out so their fallback rungs are skipped.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	opts := cfg.DubbingOptions()
	ffmpeg := audio.FFmpeg{Binary: cfg.FFmpegBinary()}
	rt := &Runtime{Metrics: metrics.New()}

	var generative translate.Generative
	if cfg.LLMConfigured() {
		l := cfg.GetLLM()
		rt.LLM = llm.NewClient(llm.Config{
			APIKey:         l.APIKey,
			BaseURL:        l.BaseURL,
			Model:          l.Model,
			Referer:        l.Referer,
			Title:          l.Title,
			TimeoutSeconds: l.TimeoutSeconds,
			Temperature:    l.Temperature,
		})
		generative = rt.LLM
	}
	var plain translate.Plain
	if cfg.MTConfigured() {
		plain = mt.NewClient(mt.Config{
			BaseURL:        cfg.MT.BaseURL,
			APIKey:         cfg.MT.APIKey,
			TimeoutSeconds: cfg.MT.TimeoutSeconds,
		})
	}
	translator := translate.New(generative, plain, translate.Options{
		WordsPerMinute: opts.WordsPerMinute,
		Tolerance:      opts.Tolerance,
		Quality: translate.Quality{
			CorruptionMarkers: opts.CorruptionMarkers,
			MinChars:          opts.MinTranslationChars,
			RejectEcho:        opts.RejectEcho,
		},
	}, logger)

	rt.TTS = tts.NewClient(tts.Config{
		APIKey:          cfg.TTS.APIKey,
		BaseURL:         cfg.TTS.BaseURL,
		ModelID:         cfg.TTS.ModelID,
		OutputFormat:    cfg.TTS.OutputFormat,
		Stability:       cfg.TTS.Stability,
		SimilarityBoost: cfg.TTS.SimilarityBoost,
		TimeoutSeconds:  cfg.TTS.TimeoutSeconds,
	}, tts.WithDecoder(ffmpeg, opts.SampleRate))
	var backend synth.Backend
	if rt.TTS.Configured() {
		backend = rt.TTS
	}

	cache, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Cache = cache
	if closer, ok := cache.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, closer.Close)
	}

	synthesizer := synth.New(backend, cache, ffmpeg, synth.Options{
		MaxSpeedAdjustment: opts.MaxSpeedAdjustment,
		Silence:            opts.Silence,
		SampleRate:         opts.SampleRate,
		MaxConcurrent:      cfg.TTS.MaxConcurrent,
		Timeout:            opts.SynthesisTimeout,
	}, logger)

	resolver := speakers.NewResolver(speakers.ResolverOptions{
		GapThreshold:   opts.GapThreshold,
		SpeakerPool:    opts.SpeakerPool,
		DefaultSpeaker: opts.DefaultSpeaker,
		Timeout:        opts.DiarizationTimeout,
	}, logger)

	deps := Deps{
		Resolver:     resolver,
		VoiceSources: VoiceSources(cfg, rt.TTS),
		Translator:   translator,
		Synthesizer:  synthesizer,
		Loader:       ffmpeg,
		Prober:       ffprobe.Prober{Binary: cfg.FFprobeBinary()},
		Transcoder:   ffmpeg,
		Metrics:      rt.Metrics,
	}
	if url := strings.TrimSpace(cfg.Diarization.URL); url != "" {
		deps.Diarizer = diarize.NewClient(url, opts.DiarizationTimeout, nil)
	}

	var source language.Code
	if opts.SourceLanguage != "" {
		source, err = language.Parse(opts.SourceLanguage)
		if err != nil {
			_ = rt.Close()
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "dubbing.source_language", err)
		}
	}
	pipeline, err := New(deps, Options{
		Workers:            opts.Workers,
		SampleRate:         opts.SampleRate,
		AnalysisSampleRate: opts.AnalysisSampleRate,
		SampleSegments:     opts.SampleSegments,
		MinSampleDuration:  opts.MinSampleDuration,
		MinSegmentDuration: opts.MinSegmentDuration,
		Placeholder:        opts.Placeholder,
		MaxTrack:           opts.MaxTrack,
		SourceLanguage:     source,
	}, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Pipeline = pipeline
	return rt, nil
}

// VoiceSources lists catalog sources in fallback order: the TTS backend when
// it has a key, then the local voices file.
func VoiceSources(cfg *config.Config, client *tts.Client) []voices.Named {
	timeout := time.Duration(cfg.TTS.CatalogTimeoutSeconds) * time.Second
	var sources []voices.Named
	if client != nil && client.Configured() {
		sources = append(sources, voices.Named{Name: CatalogSourceTTS, Source: client, Timeout: timeout})
	}
	if path := strings.TrimSpace(cfg.TTS.VoicesFile); path != "" {
		sources = append(sources, voices.Named{Name: CatalogSourceFile, Source: voices.FileSource(path)})
	}
	return sources
}

// OpenCache opens the configured synthesis cache backend.
func OpenCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (synth.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return synth.NoopCache{}, nil
	case "file":
		cache, err := synth.OpenFileCache(ctx, cfg.SynthCacheDir(), cfg.Cache.Index, logger)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "cache", "open file cache", err)
		}
		return cache, nil
	case "redis":
		client, err := synth.DialRedis(ctx, synth.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "cache", "connect redis", err)
		}
		return &closingRedisCache{
			RedisCache: synth.NewRedisCache(client, "", time.Duration(cfg.Cache.RedisTTLHours)*time.Hour),
			close:      client.Close,
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "cache", fmt.Sprintf("unknown backend %q", cfg.Cache.Backend), nil)
	}
}

type closingRedisCache struct {
	*synth.RedisCache
	close func() error
}

func (c *closingRedisCache) Close() error { return c.close() }
