package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"dubber/internal/audio"
	"dubber/internal/fallback"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/translate"
)

// Clip sources, in ladder order.
const (
	SourceCache   = "cache"
	SourceBackend = "backend"
	SourceSilence = "silence"
)

// Speed correction outcomes.
const (
	// ActionNone means the clip already matched its slot.
	ActionNone = "none"
	// ActionNatural means the clip was shorter than its slot and kept at natural speed.
	ActionNatural = "natural"
	// ActionStretched means the clip was sped up to fit its slot.
	ActionStretched = "stretched"
	// ActionClamped means the clip was sped up by the maximum and still overruns.
	ActionClamped = "clamped"
	// ActionStretchFailed means stretching failed and the natural clip was kept.
	ActionStretchFailed = "stretch_failed"
	// ActionUnadjusted means no stretcher was configured.
	ActionUnadjusted = "unadjusted"
	// ActionSilent marks a silent substitute.
	ActionSilent = "silent"
)

const (
	DefaultMaxSpeedAdjustment = 0.30
	DefaultSilence            = 100 * time.Millisecond
	DefaultSampleRate         = 24000
	ratioEpsilon              = 1e-3
)

var errCacheMiss = errors.New("cache miss")

// Backend renders text with a voice.
type Backend interface {
	Synthesize(ctx context.Context, text, voiceID string) (audio.Clip, error)
}

// Stretcher changes clip tempo without altering pitch; factor > 1 shortens it.
type Stretcher interface {
	Stretch(ctx context.Context, clip audio.Clip, factor float64) (audio.Clip, error)
}

// Options configures a Synthesizer.
type Options struct {
	MaxSpeedAdjustment float64
	// Silence is the length of the substitute clip used when synthesis fails.
	Silence time.Duration
	// SampleRate is the output track rate every clip is converted to.
	SampleRate int
	// MaxConcurrent bounds in-flight backend calls.
	MaxConcurrent int
	// Timeout bounds each backend call when positive.
	Timeout time.Duration
}

// TimedClip is a synthesized, time-corrected segment ready for assembly.
type TimedClip struct {
	Index int
	Audio audio.Clip
	Start float64
	End   float64
	// SynthesizedDuration is the natural length of the clip before correction.
	SynthesizedDuration float64
	// Target is the original slot length.
	Target float64
	// Ratio is SynthesizedDuration / Target, zero when Target is not positive.
	Ratio float64
	// Factor is the tempo applied, 1 when unchanged.
	Factor   float64
	Action   string
	Source   string
	CacheHit bool
	Silent   bool
	Failures []fallback.Failure
}

// Duration returns the corrected clip length in seconds.
func (c TimedClip) Duration() float64 {
	return c.Audio.Seconds()
}

// Synthesizer renders segments through cache, backend, then silence.
type Synthesizer struct {
	backend   Backend
	cache     Cache
	stretcher Stretcher
	sem       *semaphore.Weighted
	opts      Options
	logger    *slog.Logger
}

// New constructs a Synthesizer. A nil cache disables caching; a nil backend
// makes every segment silent; a nil stretcher disables speed correction.
func New(backend Backend, cache Cache, stretcher Stretcher, opts Options, logger *slog.Logger) *Synthesizer {
	if opts.MaxSpeedAdjustment <= 0 || opts.MaxSpeedAdjustment >= 1 {
		opts.MaxSpeedAdjustment = DefaultMaxSpeedAdjustment
	}
	if opts.Silence <= 0 {
		opts.Silence = DefaultSilence
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 4
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &Synthesizer{
		backend:   backend,
		cache:     cache,
		stretcher: stretcher,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "synthesizer"),
	}
}

type sourced struct {
	clip     audio.Clip
	cacheHit bool
	silent   bool
}

func rejectEmpty(s sourced) error {
	if s.clip.Empty() {
		return services.Wrap(services.ErrExternalService, "synthesize", "backend", "no audio returned", nil)
	}
	return nil
}

// Synthesize renders seg with voiceID. The only error returned is the
// context's; every other failure produces a silent clip.
func (s *Synthesizer) Synthesize(ctx context.Context, seg translate.Segment, voiceID string) (TimedClip, error) {
	ctx = services.WithSegmentIndex(ctx, seg.Index)
	logger := logging.WithContext(ctx, s.logger)
	text := strings.TrimSpace(seg.TranslatedText)
	key := KeyFor(voiceID, text)

	outcome, err := fallback.FirstSuccess(ctx,
		fallback.Strategy[sourced]{
			Name: SourceCache,
			Run: func(ctx context.Context) (sourced, error) {
				clip, ok, err := s.cache.Get(ctx, key)
				if err != nil {
					return sourced{}, err
				}
				if !ok {
					return sourced{}, errCacheMiss
				}
				return sourced{clip: clip, cacheHit: true}, nil
			},
			Reject: rejectEmpty,
		},
		fallback.Strategy[sourced]{
			Name: SourceBackend,
			Run: func(ctx context.Context) (sourced, error) {
				return s.render(ctx, key, text, voiceID)
			},
			Reject: rejectEmpty,
		},
		fallback.Strategy[sourced]{
			Name: SourceSilence,
			Run: func(context.Context) (sourced, error) {
				return sourced{clip: audio.Silence(s.opts.Silence, s.opts.SampleRate), silent: true}, nil
			},
		},
	)
	if err != nil {
		return TimedClip{}, err
	}

	clip := outcome.Value.clip.Resample(s.opts.SampleRate)
	out := TimedClip{
		Index:               seg.Index,
		Start:               seg.Start,
		End:                 seg.End,
		SynthesizedDuration: clip.Seconds(),
		Target:              seg.End - seg.Start,
		Factor:              1,
		Source:              outcome.Winner,
		CacheHit:            outcome.Value.cacheHit,
		Silent:              outcome.Value.silent,
		Failures:            outcome.Failures,
	}
	if out.Silent {
		out.Audio = clip
		out.Action = ActionSilent
		logging.WarnWithContext(logger, "synthesis failed; substituting silence", "synthesis_failed",
			logging.String("voice_id", voiceID),
			logging.String("failures", describeFailures(outcome.Failures)),
			logging.String(logging.FieldErrorHint, "check the TTS backend configuration and quota"),
			logging.String(logging.FieldImpact, "segment is silent in the dubbed track"),
		)
		return out, nil
	}

	if err := s.correct(ctx, &out, clip); err != nil {
		return TimedClip{}, err
	}
	logger.Debug("segment synthesized",
		logging.String("source", out.Source),
		logging.String("action", out.Action),
		logging.Float64("ratio", out.Ratio),
		logging.Float64("factor", out.Factor),
	)
	return out, nil
}

// render calls the backend under the concurrency bound and stores the result.
func (s *Synthesizer) render(ctx context.Context, key Key, text, voiceID string) (sourced, error) {
	if s.backend == nil {
		return sourced{}, services.Wrap(services.ErrConfiguration, "synthesize", "backend", "no synthesis backend configured", nil)
	}
	if text == "" {
		return sourced{}, services.Wrap(services.ErrEmptyInput, "synthesize", "backend", "no text to synthesize", nil)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return sourced{}, err
	}
	defer s.sem.Release(1)

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	clip, err := s.backend.Synthesize(callCtx, text, voiceID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return sourced{}, services.Wrap(services.ErrTimeout, "synthesize", "backend", fmt.Sprintf("no response within %s", s.opts.Timeout), err)
		}
		return sourced{}, err
	}
	if !clip.Empty() {
		if err := s.cache.Put(ctx, key, clip); err != nil {
			logging.WithContext(ctx, s.logger).Debug("cache write failed", logging.Error(err))
		}
	}
	return sourced{clip: clip}, nil
}

// correct applies bounded speed-up to clip and fills the timing fields of out.
func (s *Synthesizer) correct(ctx context.Context, out *TimedClip, clip audio.Clip) error {
	out.Audio = clip
	if out.Target <= 0 || clip.Empty() {
		out.Action = ActionNone
		return nil
	}
	ratio := out.SynthesizedDuration / out.Target
	out.Ratio = ratio
	switch {
	case ratio < 1-ratioEpsilon:
		out.Action = ActionNatural
		return nil
	case ratio <= 1+ratioEpsilon:
		out.Action = ActionNone
		return nil
	}
	if s.stretcher == nil {
		out.Action = ActionUnadjusted
		return nil
	}

	factor := min(ratio, 1+s.opts.MaxSpeedAdjustment)
	stretched, err := s.stretcher.Stretch(ctx, clip, factor)
	if err == nil && stretched.Empty() {
		err = errors.New("stretch returned no audio")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		out.Action = ActionStretchFailed
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "time stretch failed; keeping natural speed", "stretch_failed",
			logging.Float64("factor", factor),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify ffmpeg is installed and supports atempo"),
			logging.String(logging.FieldImpact, "segment overruns its slot"),
		)
		return nil
	}
	if stretched.SampleRate != s.opts.SampleRate {
		stretched = stretched.Resample(s.opts.SampleRate)
	}
	out.Audio = stretched
	out.Factor = factor
	out.Action = ActionStretched
	if ratio > 1+s.opts.MaxSpeedAdjustment {
		out.Action = ActionClamped
	}
	return nil
}

func describeFailures(failures []fallback.Failure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		if errors.Is(f.Err, errCacheMiss) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return strings.Join(parts, "; ")
}
