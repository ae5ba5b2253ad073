package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dubber/internal/audio"
	"dubber/internal/features"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/metrics"
	"dubber/internal/services"
	"dubber/internal/speakers"
	"dubber/internal/stage"
	"dubber/internal/synth"
	"dubber/internal/timeline"
	"dubber/internal/translate"
	"dubber/internal/voices"
)

// AudioLoader decodes a recording to mono PCM.
type AudioLoader interface {
	Load(ctx context.Context, path string, stream, sampleRate int) (audio.Clip, error)
}

// Prober vets a recording before it is used.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Transcoder converts a WAV file to the format implied by dst's extension,
// tagging the audio stream with the ISO 639-2 code lang.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst, lang string) error
}

// Diarizer produces a timeline source for a recording.
type Diarizer interface {
	Source(audioPath string) speakers.TimelineSource
}

// Deps are the pipeline collaborators. Resolver, Translator, and Synthesizer
// are required; the rest are optional.
type Deps struct {
	Resolver     *speakers.Resolver
	VoiceSources []voices.Named
	Translator   *translate.Translator
	Synthesizer  *synth.Synthesizer
	Loader       AudioLoader
	Prober       Prober
	Transcoder   Transcoder
	Diarizer     Diarizer
	Metrics      *metrics.Metrics
}

// Options are the pipeline knobs.
type Options struct {
	Workers            int
	SampleRate         int
	AnalysisSampleRate int
	SampleSegments     int
	MinSampleDuration  time.Duration
	MinSegmentDuration time.Duration
	Placeholder        time.Duration
	// MaxTrack bounds segment times when no recording length is known.
	MaxTrack time.Duration
	// SourceLanguage is used when a request does not name one.
	SourceLanguage language.Code
}

// Pipeline runs dubbing jobs. It is safe for concurrent use.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// Result is a completed job.
type Result struct {
	JobID       string
	Track       timeline.Track
	OutputPath  string
	Segments    []translate.Segment
	Clips       []synth.TimedClip
	Assignments voices.Assignments
	Summary     Summary
}

// New validates deps and fills unset options.
func New(deps Deps, opts Options, logger *slog.Logger) (*Pipeline, error) {
	switch {
	case deps.Resolver == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "speaker resolver required", nil)
	case deps.Translator == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "translator required", nil)
	case deps.Synthesizer == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "synthesizer required", nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = synth.DefaultSampleRate
	}
	if opts.AnalysisSampleRate <= 0 {
		opts.AnalysisSampleRate = 16000
	}
	if opts.SampleSegments < 1 {
		opts.SampleSegments = 3
	}
	if opts.MinSampleDuration <= 0 {
		opts.MinSampleDuration = 500 * time.Millisecond
	}
	if opts.MinSegmentDuration <= 0 {
		opts.MinSegmentDuration = 100 * time.Millisecond
	}
	if opts.Placeholder <= 0 {
		opts.Placeholder = timeline.DefaultPlaceholder
	}
	if opts.MaxTrack <= 0 {
		opts.MaxTrack = DefaultMaxTrack
	}
	return &Pipeline{deps: deps, opts: opts, logger: logging.NewComponentLogger(logger, "pipeline")}, nil
}

// job carries the state of one Dub call through its stages.
type job struct {
	p      *Pipeline
	id     string
	req    Request
	logger *slog.Logger

	prep          prepared
	skipProfile   bool
	audioStream   int
	recording     audio.Clip
	resolution    speakers.Resolution
	speakers      []speakers.Speaker
	catalogSource string
	assignments   voices.Assignments
	translated    []translate.Segment
	clips         []synth.TimedClip
	track         timeline.Track
}

// Dub runs a job. Errors are *JobError values; errors.Is reaches the cause.
func (p *Pipeline) Dub(ctx context.Context, req Request) (Result, error) {
	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, id)
	j := &job{p: p, id: id, req: req, logger: logging.WithContext(ctx, p.logger)}

	current := ""
	run := func(name string, fn func(context.Context) error) error {
		current = name
		return stage.Run(ctx, p.logger, p.deps.Metrics, name, fn)
	}
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{stage.Validate, j.validate},
		{stage.Resolve, j.resolve},
		{stage.Profile, j.profile},
		{stage.Match, j.match},
		{stage.Translate, j.translate},
		{stage.Synthesize, j.synthesize},
		{stage.Assemble, j.assemble},
		{stage.Write, j.write},
	}
	for _, step := range steps {
		if err := run(step.name, step.fn); err != nil {
			p.deps.Metrics.RecordJob(current, errorClass(err))
			return Result{}, &JobError{Stage: current, JobID: id, Err: err}
		}
	}
	p.deps.Metrics.RecordJob(current, "")

	res := Result{
		JobID:       id,
		Track:       j.track,
		OutputPath:  j.req.OutputPath,
		Segments:    j.translated,
		Clips:       j.clips,
		Assignments: j.assignments,
	}
	res.Summary = j.summary()
	j.logger.Info("dub job completed",
		logging.String("target_language", string(j.req.TargetLanguage)),
		logging.Int("segments", len(j.translated)),
		logging.Int("speakers", len(j.speakers)),
		logging.Seconds("track_seconds", j.track.Seconds()),
		logging.Float64("track_peak", res.Summary.TrackPeak),
		logging.String("output_path", j.req.OutputPath),
	)
	return res, nil
}

func errorClass(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return services.Classify(err)
}

// empty reports whether the job degraded to a silent track.
func (j *job) empty() bool {
	return len(j.prep.segments) == 0
}

func (j *job) validate(ctx context.Context) error {
	req, err := normalizeRequest(j.req)
	if err != nil {
		return err
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = j.p.opts.SourceLanguage
	}
	j.req = req

	recordingSeconds := 0.0
	if req.SourceAudio != "" && j.p.deps.Prober != nil {
		info, err := j.p.deps.Prober.Probe(ctx, req.SourceAudio)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			j.skipProfile = true
			logging.WarnWithContext(logging.WithContext(ctx, j.p.logger), "source audio could not be inspected; matching without profiles", "inspect_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify ffprobe is installed and the recording is readable"),
				logging.String(logging.FieldImpact, "voices are chosen by catalog order and segments are bounded only by max_track_seconds"),
			)
		}
		if d := info.DurationSeconds(); !math.IsNaN(d) && d > 0 {
			recordingSeconds = d
		}
		if sel, ok := ffprobe.SelectSpeech(info.Streams, req.SourceLanguage); ok {
			j.audioStream = sel.Ordinal
			if sel.Candidates > 1 {
				logging.WithContext(ctx, j.p.logger).Info("selected source audio stream",
					logging.String("stream", sel.Label),
					logging.Int("candidates", sel.Candidates),
				)
			}
		}
	}
	j.prep = prepare(req.Segments, j.p.opts.MinSegmentDuration.Seconds(), trackBound(recordingSeconds, j.p.opts.MaxTrack))
	logger := logging.WithContext(ctx, j.p.logger)
	if j.prep.dropped > 0 {
		logger.Info("dropped unusable segments",
			logging.Int("dropped", j.prep.dropped),
			logging.Int("kept", len(j.prep.segments)),
		)
	}
	if j.empty() {
		logging.WarnWithContext(logger, "no usable segments", "empty_input",
			logging.Error(services.Wrap(services.ErrEmptyInput, "validate", "segments", "no usable segments", nil)),
			logging.String(logging.FieldErrorHint, "check the recognizer output"),
			logging.String(logging.FieldImpact, "a silent placeholder track is produced"),
		)
	}
	return nil
}

func (j *job) resolve(ctx context.Context) error {
	if j.empty() {
		return nil
	}
	source := j.req.Timeline
	if source == nil && j.p.deps.Diarizer != nil && j.req.SourceAudio != "" {
		source = j.p.deps.Diarizer.Source(j.req.SourceAudio)
	}
	res, err := j.p.deps.Resolver.Resolve(ctx, j.prep.segments, source)
	if err != nil {
		return err
	}
	j.resolution = res
	j.p.deps.Metrics.RecordResolution(res.Method)
	return nil
}

func (j *job) profile(ctx context.Context) error {
	if j.empty() {
		return nil
	}
	segments := j.resolution.Segments
	dominant := map[string]features.Profile{}
	if j.req.SourceAudio != "" && j.p.deps.Loader != nil && !j.skipProfile {
		recording, err := j.p.deps.Loader.Load(ctx, j.req.SourceAudio, j.audioStream, j.p.opts.AnalysisSampleRate)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			logging.WarnWithContext(logging.WithContext(ctx, j.p.logger), "source audio unreadable; matching without profiles", "profile_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify ffmpeg can decode the source recording"),
				logging.String(logging.FieldImpact, "voices are chosen by catalog order"),
			)
		default:
			j.recording = recording
			samples, err := j.sampleProfiles(ctx, segments)
			if err != nil {
				return err
			}
			dominant = speakers.DominantProfiles(samples)
		}
	}
	j.speakers = speakers.Speakers(segments, dominant)
	return nil
}

// sampleProfiles extracts features from each speaker's sampled segments.
// Segments that cannot be analysed are skipped.
func (j *job) sampleProfiles(ctx context.Context, segments []speakers.Segment) (map[string][]features.Profile, error) {
	picks := speakers.SampleIndexes(segments, j.p.opts.SampleSegments, j.p.opts.MinSampleDuration.Seconds())
	var (
		mu      sync.Mutex
		results = make(map[int]features.Profile)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.p.opts.Workers)
	for _, idxs := range picks {
		for _, i := range idxs {
			seg := segments[i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				profile, err := features.Extract(j.recording, seg.Start, seg.End)
				if err != nil {
					logging.WithContext(services.WithSegmentIndex(gctx, seg.Index), j.p.logger).
						Debug("segment profile skipped", logging.Error(err))
					return nil
				}
				mu.Lock()
				results[i] = profile
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	samples := make(map[string][]features.Profile, len(picks))
	for speaker, idxs := range picks {
		for _, i := range idxs {
			if profile, ok := results[i]; ok {
				samples[speaker] = append(samples[speaker], profile)
			}
		}
	}
	return samples, nil
}

func (j *job) match(ctx context.Context) error {
	if j.empty() {
		return nil
	}
	catalog, source, err := voices.Fetch(ctx, j.p.logger, j.p.deps.VoiceSources...)
	if err != nil {
		return err
	}
	j.catalogSource = source
	candidates := make([]voices.Candidate, 0, len(j.speakers))
	for _, sp := range j.speakers {
		candidates = append(candidates, voices.Candidate{Speaker: sp.ID, Profile: sp.Profile})
	}
	assignments, err := voices.Match(candidates, catalog, j.req.TargetLanguage)
	if err != nil {
		return err
	}
	j.assignments = assignments
	logger := logging.WithContext(ctx, j.p.logger)
	for _, a := range assignments {
		logger.Info("voice assigned",
			logging.String(logging.FieldSpeaker, a.Speaker),
			logging.String("voice_id", a.VoiceID),
			logging.String("voice_name", a.VoiceName),
			logging.Float64("match_score", a.Score),
			logging.Bool("reused", a.Reused),
		)
	}
	return nil
}

func (j *job) translate(ctx context.Context) error {
	if j.empty() {
		return nil
	}
	segments := j.resolution.Segments
	out := make([]translate.Segment, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.p.opts.Workers)
	for i, seg := range segments {
		budget := j.prep.budgets[i]
		g.Go(func() error {
			segCtx := services.WithSegmentIndex(gctx, seg.Index)
			translated, err := j.p.deps.Translator.TranslateSegment(segCtx, seg, budget, j.req.SourceLanguage, j.req.TargetLanguage)
			if err != nil {
				return fmt.Errorf("segment %d: %w", seg.Index, err)
			}
			out[i] = translated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, seg := range out {
		j.p.deps.Metrics.RecordTier(seg.Tier)
	}
	j.translated = out
	return nil
}

func (j *job) synthesize(ctx context.Context) error {
	if j.empty() {
		return nil
	}
	voiceIDs := j.assignments.VoiceIDs()
	out := make([]synth.TimedClip, len(j.translated))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.p.opts.Workers)
	for i, seg := range j.translated {
		voiceID := voiceIDs[seg.Speaker]
		g.Go(func() error {
			clip, err := j.p.deps.Synthesizer.Synthesize(gctx, seg, voiceID)
			if err != nil {
				return err
			}
			out[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, clip := range out {
		j.p.deps.Metrics.RecordClip(clip.CacheHit, clip.Silent, clip.Action)
	}
	j.clips = out
	return nil
}

func (j *job) assemble(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clips := make([]timeline.Clip, 0, len(j.clips))
	for _, c := range j.clips {
		clips = append(clips, timeline.Clip{Index: c.Index, Start: c.Start, End: c.End, Audio: c.Audio})
	}
	j.track = timeline.Assemble(clips, timeline.Options{SampleRate: j.p.opts.SampleRate, Placeholder: j.p.opts.Placeholder})
	j.p.deps.Metrics.SetTrackSeconds(j.track.Seconds())
	return nil
}

func (j *job) write(ctx context.Context) error {
	if j.req.OutputPath == "" {
		return nil
	}
	return j.p.writeOutput(ctx, j.req.OutputPath, j.track.Audio, j.req.TargetLanguage)
}
