package speakers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"dubber/internal/fallback"
	"dubber/internal/logging"
	"dubber/internal/services"
)

// Resolution methods, in ladder order.
const (
	MethodDiarization    = "diarization"
	MethodGapAlternation = "gap_alternation"
	MethodDefault        = "default"
)

var (
	errEmptyTimeline       = errors.New("diarization timeline is empty")
	errTimelineUnavailable = errors.New("diarization unavailable")
)

// ResolverOptions tunes the fallback heuristics.
type ResolverOptions struct {
	// GapThreshold is the silence after which gap alternation switches speaker.
	GapThreshold time.Duration
	// SpeakerPool is the number of labels gap alternation cycles over.
	SpeakerPool int
	// DefaultSpeaker labels every segment when diarization fails.
	DefaultSpeaker string
	// Timeout bounds the timeline fetch when positive.
	Timeout time.Duration
}

// Resolution is the outcome of speaker resolution.
type Resolution struct {
	Segments []Segment
	Method   string
	Failures []fallback.Failure
}

// Resolver assigns speakers to segments.
type Resolver struct {
	opts   ResolverOptions
	logger *slog.Logger
}

// NewResolver constructs a resolver, filling unset options with defaults.
func NewResolver(opts ResolverOptions, logger *slog.Logger) *Resolver {
	if opts.GapThreshold <= 0 {
		opts.GapThreshold = 2 * time.Second
	}
	if opts.SpeakerPool < 1 {
		opts.SpeakerPool = 2
	}
	if opts.DefaultSpeaker == "" {
		opts.DefaultSpeaker = PoolLabel(0)
	}
	return &Resolver{opts: opts, logger: logging.NewComponentLogger(logger, "speaker-resolver")}
}

// PoolLabel returns the gap-alternation label for pool slot i.
func PoolLabel(i int) string {
	return fmt.Sprintf("SPEAKER_%02d", i)
}

// Resolve tags every segment with a speaker. A nil source is treated as an
// empty timeline. Timeline errors skip gap alternation and fall through to the
// default speaker. Segments are returned as new values; the input is untouched.
func (r *Resolver) Resolve(ctx context.Context, segments []Segment, source TimelineSource) (Resolution, error) {
	logger := logging.WithContext(ctx, r.logger)
	fetchErr := errEmptyTimeline

	outcome, err := fallback.FirstSuccess(ctx,
		fallback.Strategy[[]Segment]{
			Name:    MethodDiarization,
			Timeout: r.opts.Timeout,
			Run: func(ctx context.Context) ([]Segment, error) {
				if source == nil {
					return nil, errEmptyTimeline
				}
				turns, err := source.Timeline(ctx)
				if err != nil {
					fetchErr = fmt.Errorf("%w: %w", errTimelineUnavailable, err)
					return nil, services.Wrap(services.ErrExternalService, "resolve", "diarization", "fetch timeline", err)
				}
				if len(turns) == 0 {
					return nil, errEmptyTimeline
				}
				return AssignByTimeline(segments, SortTurns(turns)), nil
			},
		},
		fallback.Strategy[[]Segment]{
			Name: MethodGapAlternation,
			Run: func(context.Context) ([]Segment, error) {
				if !errors.Is(fetchErr, errEmptyTimeline) {
					return nil, fetchErr
				}
				return AssignByGap(segments, r.opts.GapThreshold.Seconds(), r.opts.SpeakerPool), nil
			},
		},
		fallback.Strategy[[]Segment]{
			Name: MethodDefault,
			Run: func(context.Context) ([]Segment, error) {
				return AssignDefault(segments, r.opts.DefaultSpeaker), nil
			},
		},
	)
	if err != nil {
		return Resolution{}, err
	}

	reason := "timeline available"
	if len(outcome.Failures) > 0 {
		last := outcome.Failures[len(outcome.Failures)-1]
		reason = last.Err.Error()
	}
	attrs := logging.DecisionAttrs("speaker_resolution", outcome.Winner, reason)
	attrs = append(attrs, logging.Int("segments", len(segments)))
	if outcome.Winner == MethodDefault {
		logging.WarnWithContext(logger, "speaker resolution degraded to default speaker", "speaker_resolution_degraded",
			append(attrs,
				logging.String(logging.FieldErrorHint, "check the diarization service or supply a timeline file"),
				logging.String(logging.FieldImpact, "all segments share one voice"),
			)...)
	} else {
		logger.Info("speakers resolved", logging.Args(attrs...)...)
	}

	return Resolution{Segments: outcome.Value, Method: outcome.Winner, Failures: outcome.Failures}, nil
}

// AssignByTimeline tags each segment with the turn containing its midpoint;
// the first containing turn in timeline order wins. Segments whose midpoint
// lies in no turn take the nearest turn by boundary distance.
func AssignByTimeline(segments []Segment, turns []Turn) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg.WithSpeaker(speakerAt(turns, seg.Midpoint()))
	}
	return out
}

func speakerAt(turns []Turn, mid float64) string {
	for _, t := range turns {
		if t.Contains(mid) {
			return t.Speaker
		}
	}
	best := ""
	bestDist := math.Inf(1)
	for _, t := range turns {
		d := math.Min(math.Abs(t.Start-mid), math.Abs(t.End-mid))
		if d < bestDist {
			best = t.Speaker
			bestDist = d
		}
	}
	return best
}

// AssignByGap alternates speakers over a pool of size pool whenever the gap
// from the previous segment's end exceeds threshold seconds.
func AssignByGap(segments []Segment, threshold float64, pool int) []Segment {
	if pool < 1 {
		pool = 1
	}
	out := make([]Segment, len(segments))
	current := 0
	for i, seg := range segments {
		if i > 0 && seg.Start-segments[i-1].End > threshold {
			current = (current + 1) % pool
		}
		out[i] = seg.WithSpeaker(PoolLabel(current))
	}
	return out
}

// AssignDefault tags every segment with speaker.
func AssignDefault(segments []Segment, speaker string) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg.WithSpeaker(speaker)
	}
	return out
}
