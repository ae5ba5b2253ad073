package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dubber/internal/fallback"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
	"dubber/internal/services/llm"
	"dubber/internal/speakers"
)

// Tier names, in ladder order.
const (
	TierLLM         = "llm"
	TierMT          = "mt"
	TierPassthrough = "passthrough"
)

// Generative is the constrained translation backend.
type Generative interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Plain is the unconstrained machine translation backend.
type Plain interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Options configures a Translator.
type Options struct {
	WordsPerMinute int
	Tolerance      float64
	Quality        Quality
	// LLMTimeout and MTTimeout bound each tier when positive.
	LLMTimeout time.Duration
	MTTimeout  time.Duration
}

// Translator runs the tier ladder. Nil backends are skipped.
type Translator struct {
	generative Generative
	plain      Plain
	opts       Options
	logger     *slog.Logger
}

// New constructs a Translator.
func New(generative Generative, plain Plain, opts Options, logger *slog.Logger) *Translator {
	if opts.WordsPerMinute <= 0 {
		opts.WordsPerMinute = DefaultWordsPerMinute
	}
	return &Translator{
		generative: generative,
		plain:      plain,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "translator"),
	}
}

// Request is one budgeted translation.
type Request struct {
	Text string
	// Source may be empty when the source language is unknown.
	Source   language.Code
	Target   language.Code
	Duration float64
}

// Result is the accepted translation and how it was reached.
type Result struct {
	Text        string
	Tier        string
	TargetWords int
	Failures    []fallback.Failure
}

// Degraded reports whether a tier ahead of the winner failed.
func (r Result) Degraded() bool {
	return len(r.Failures) > 0
}

// Translate runs the ladder for req. The only errors returned are
// services.ErrEmptyInput for blank text and context cancellation.
func (t *Translator) Translate(ctx context.Context, req Request) (Result, error) {
	source := strings.TrimSpace(req.Text)
	if source == "" {
		return Result{}, services.Wrap(services.ErrEmptyInput, "translate", "budget", "blank text", nil)
	}
	target := TargetWordCount(req.Duration, t.opts.WordsPerMinute)
	low, high := Band(target, t.opts.Tolerance)
	check := func(out string) error {
		return t.opts.Quality.Check(source, out, req.Source, req.Target)
	}

	var strategies []fallback.Strategy[string]
	if t.generative != nil {
		prompt := BuildPrompt(source, req.Source, req.Target, target, low, high)
		strategies = append(strategies, fallback.Strategy[string]{
			Name:    TierLLM,
			Timeout: t.opts.LLMTimeout,
			Run: func(ctx context.Context) (string, error) {
				content, err := t.generative.CompleteJSON(ctx, SystemPrompt, prompt)
				if err != nil {
					return "", err
				}
				var payload struct {
					Translation string `json:"translation"`
				}
				if err := llm.DecodeLLMJSON(content, &payload); err != nil {
					return "", fmt.Errorf("%w: parse payload: %w", services.ErrTranslationQualityReject, err)
				}
				return Clean(payload.Translation), nil
			},
			Reject: check,
		})
	}
	if t.plain != nil {
		strategies = append(strategies, fallback.Strategy[string]{
			Name:    TierMT,
			Timeout: t.opts.MTTimeout,
			Run: func(ctx context.Context) (string, error) {
				out, err := t.plain.Translate(ctx, source, req.Source.String(), req.Target.String())
				if err != nil {
					return "", err
				}
				return Clean(out), nil
			},
			Reject: check,
		})
	}
	strategies = append(strategies, fallback.Strategy[string]{
		Name: TierPassthrough,
		Run: func(context.Context) (string, error) {
			return req.Text, nil
		},
	})

	outcome, err := fallback.FirstSuccess(ctx, strategies...)
	if err != nil {
		return Result{}, err
	}
	result := Result{Text: outcome.Value, Tier: outcome.Winner, TargetWords: target, Failures: outcome.Failures}
	t.logOutcome(ctx, req, result)
	return result, nil
}

func (t *Translator) logOutcome(ctx context.Context, req Request, result Result) {
	logger := logging.WithContext(ctx, t.logger)
	attrs := []logging.Attr{
		logging.String("tier", result.Tier),
		logging.Int("target_words", result.TargetWords),
		logging.Int("words", WordCount(result.Text)),
		logging.String("target_language", req.Target.String()),
	}
	if !result.Degraded() {
		logger.Debug("segment translated", logging.Args(attrs...)...)
		return
	}
	for _, f := range result.Failures {
		attrs = append(attrs, logging.String("failed_"+f.Strategy, f.Err.Error()))
	}
	impact := "translation fell back to a less constrained tier"
	if result.Tier == TierPassthrough {
		impact = "segment is dubbed in the source language"
	}
	attrs = append(attrs,
		logging.String(logging.FieldImpact, impact),
		logging.String(logging.FieldErrorHint, hintFor(result.Failures)),
	)
	logging.WarnWithContext(logger, "translation degraded", "translation_fallback", attrs...)
}

func hintFor(failures []fallback.Failure) string {
	for _, f := range failures {
		switch {
		case errors.Is(f.Err, services.ErrConfiguration):
			return "configure llm.api_key or mt.base_url"
		case errors.Is(f.Err, services.ErrExternalService):
			return "check translation backend availability"
		}
	}
	return "inspect the rejected output in debug logs"
}

// Segment is a translated segment record.
type Segment struct {
	Index            int     `json:"index"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Speaker          string  `json:"speaker"`
	OriginalText     string  `json:"original_text"`
	TranslatedText   string  `json:"translated_text"`
	TargetWordCount  int     `json:"target_word_count"`
	OriginalDuration float64 `json:"original_duration"`
	Tier             string  `json:"tier"`
}

// TranslateSegment translates seg using budget seconds, which may exceed the
// segment's own duration for very short segments.
func (t *Translator) TranslateSegment(ctx context.Context, seg speakers.Segment, budget float64, source, target language.Code) (Segment, error) {
	res, err := t.Translate(ctx, Request{Text: seg.Text, Source: source, Target: target, Duration: budget})
	if err != nil {
		return Segment{}, err
	}
	return Segment{
		Index:            seg.Index,
		Start:            seg.Start,
		End:              seg.End,
		Speaker:          seg.Speaker,
		OriginalText:     seg.Text,
		TranslatedText:   res.Text,
		TargetWordCount:  res.TargetWords,
		OriginalDuration: seg.Duration(),
		Tier:             res.Tier,
	}, nil
}
