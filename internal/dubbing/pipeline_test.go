package dubbing

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dubber/internal/audio"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/metrics"
	"dubber/internal/services"
	"dubber/internal/speakers"
	"dubber/internal/stage"
	"dubber/internal/synth"
	"dubber/internal/testsupport"
	"dubber/internal/translate"
	"dubber/internal/voices"
)

const testRate = 24000

// lengthBackend returns a tone whose length is looked up by text.
type lengthBackend struct {
	seconds map[string]float64
	calls   atomic.Int32
}

func (b *lengthBackend) Synthesize(_ context.Context, text, _ string) (audio.Clip, error) {
	b.calls.Add(1)
	n := int(math.Round(b.seconds[text] * testRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.25
	}
	return audio.Clip{Samples: samples, SampleRate: testRate}, nil
}

type staticVoices struct {
	descs []voices.Descriptor
	calls atomic.Int32
}

func (s *staticVoices) Voices(context.Context) ([]voices.Descriptor, error) {
	s.calls.Add(1)
	return s.descs, nil
}

type failingTranscoder struct{}

func (failingTranscoder) Transcode(context.Context, string, string, string) error {
	return errors.New("encoder exploded")
}

type copyTranscoder struct {
	mu    sync.Mutex
	srcs  []string
	langs []string
}

func (c *copyTranscoder) Transcode(_ context.Context, src, dst, lang string) error {
	c.mu.Lock()
	c.srcs = append(c.srcs, src)
	c.langs = append(c.langs, lang)
	c.mu.Unlock()
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

type streamProber struct {
	result ffprobe.Result
}

func (p streamProber) Probe(context.Context, string) (ffprobe.Result, error) {
	return p.result, nil
}

type failingInspector struct{}

func (failingInspector) Probe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{}, errors.New("exec: \"ffprobe\": executable file not found in $PATH")
}

// unreadableLoader records the requested stream and fails to decode.
type unreadableLoader struct {
	stream atomic.Int32
}

func (l *unreadableLoader) Load(_ context.Context, _ string, stream, _ int) (audio.Clip, error) {
	l.stream.Store(int32(stream))
	return audio.Clip{}, errors.New("decoder missing")
}

type fixture struct {
	backend *lengthBackend
	catalog *staticVoices
	metrics *metrics.Metrics
	deps    Deps
}

func newFixture(t *testing.T, voiceLangs ...language.Code) *fixture {
	t.Helper()
	if len(voiceLangs) == 0 {
		voiceLangs = []language.Code{"es"}
	}
	logger := logging.NewNop()
	f := &fixture{
		backend: &lengthBackend{seconds: map[string]float64{"alpha": 2.5, "bravo": 2.0, "charlie": 0.5}},
		catalog: &staticVoices{descs: []voices.Descriptor{
			{ID: "v1", Name: "Uno", Languages: voiceLangs},
			{ID: "v2", Name: "Dos", Languages: voiceLangs},
		}},
		metrics: metrics.New(),
	}
	f.deps = Deps{
		Resolver:     speakers.NewResolver(speakers.ResolverOptions{}, logger),
		VoiceSources: []voices.Named{{Name: CatalogSourceFile, Source: f.catalog}},
		Translator:   translate.New(nil, nil, translate.Options{WordsPerMinute: 150, Tolerance: 0.2}, logger),
		Synthesizer:  synth.New(f.backend, nil, nil, synth.Options{SampleRate: testRate, MaxConcurrent: 2}, logger),
		Metrics:      f.metrics,
	}
	return f
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(f.deps, Options{SampleRate: testRate}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func scenarioSegments() []speakers.Segment {
	return []speakers.Segment{
		{Start: 0, End: 2, Text: "alpha"},
		{Start: 2, End: 4, Text: "bravo"},
		{Start: 6, End: 7, Text: "charlie"},
	}
}

func TestNewRequiresCoreDeps(t *testing.T) {
	f := newFixture(t)
	deps := f.deps
	deps.Translator = nil
	_, err := New(deps, Options{}, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDubPlacesOverrunningSegmentsSequentially(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	if got := res.Track.Seconds(); math.Abs(got-6.5) > 1e-6 {
		t.Fatalf("track length = %v, want 6.5", got)
	}
	wantStarts := []float64{0, 2.5, 6.0}
	if len(res.Track.Placements) != len(wantStarts) {
		t.Fatalf("placements = %d", len(res.Track.Placements))
	}
	for i, p := range res.Track.Placements {
		if math.Abs(p.PlacedStart-wantStarts[i]) > 1e-6 {
			t.Fatalf("placement %d starts at %v, want %v", i, p.PlacedStart, wantStarts[i])
		}
		if p.PlacedStart < p.OriginalStart {
			t.Fatalf("placement %d starts before its original start", i)
		}
	}
	if res.JobID == "" {
		t.Fatal("expected generated job id")
	}
	for i, seg := range res.Segments {
		if seg.Index != i {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		if seg.Tier != translate.TierPassthrough {
			t.Fatalf("expected passthrough tier, got %q", seg.Tier)
		}
	}
	if res.Clips[0].Action != synth.ActionUnadjusted {
		t.Fatalf("expected overrun clip unadjusted without a stretcher, got %q", res.Clips[0].Action)
	}
	if res.Clips[2].Action != synth.ActionNatural {
		t.Fatalf("expected short clip at natural speed, got %q", res.Clips[2].Action)
	}
}

func TestDubSummary(t *testing.T) {
	f := newFixture(t)
	segments := append(scenarioSegments(), speakers.Segment{Start: 8, End: 9, Text: "   "})
	res, err := f.pipeline(t).Dub(context.Background(), Request{
		JobID:          "job-1",
		Segments:       segments,
		TargetLanguage: "spa",
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	s := res.Summary
	if s.JobID != "job-1" || s.TargetLanguage != "es" {
		t.Fatalf("unexpected identity fields: %+v", s)
	}
	if s.Segments != 3 || s.DroppedSegments != 1 {
		t.Fatalf("segments=%d dropped=%d", s.Segments, s.DroppedSegments)
	}
	if s.ResolutionMethod != speakers.MethodGapAlternation {
		t.Fatalf("resolution method = %q", s.ResolutionMethod)
	}
	if s.CatalogSource != CatalogSourceFile {
		t.Fatalf("catalog source = %q", s.CatalogSource)
	}
	if s.TranslationTiers[translate.TierPassthrough] != 3 {
		t.Fatalf("tiers = %v", s.TranslationTiers)
	}
	if s.Silent != 0 || s.Placeholder {
		t.Fatalf("unexpected degradation: %+v", s)
	}
	if math.Abs(s.TrackPeak-0.25) > 1e-9 {
		t.Fatalf("track peak = %v, want 0.25", s.TrackPeak)
	}
	if len(s.Speakers) == 0 {
		t.Fatal("expected speaker summaries")
	}
}

func TestDubFailsBeforeSynthesisWhenNoVoiceSupportsTarget(t *testing.T) {
	f := newFixture(t, "fr")
	_, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		TargetLanguage: "es",
	})
	if !errors.Is(err, services.ErrNoVoiceForLanguage) {
		t.Fatalf("expected no-voice error, got %v", err)
	}
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected *JobError, got %T", err)
	}
	if jobErr.Stage != stage.Match {
		t.Fatalf("failed at %q, want %q", jobErr.Stage, stage.Match)
	}
	if n := f.backend.calls.Load(); n != 0 {
		t.Fatalf("expected no synthesis calls, got %d", n)
	}
	if got := testutil.ToFloat64(f.metrics.Errors.WithLabelValues(stage.Match, "no_voice_for_language")); got != 1 {
		t.Fatalf("error metric = %v", got)
	}
}

func TestDubEmptyInputProducesPlaceholder(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(t.TempDir(), "silent.wav")
	res, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       []speakers.Segment{{Start: 0, End: 1, Text: " "}, {Start: 3, End: 2, Text: "backwards"}},
		TargetLanguage: "es",
		OutputPath:     out,
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	if !res.Track.Placeholder || !res.Summary.Placeholder || res.Summary.TrackPeak != 0 {
		t.Fatal("expected silent placeholder track")
	}
	if got := res.Track.Seconds(); math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("placeholder length = %v", got)
	}
	if f.backend.calls.Load() != 0 || f.catalog.calls.Load() != 0 {
		t.Fatal("expected no backend or catalog calls for empty input")
	}
	clip := testsupport.ReadWAV(t, out)
	if clip.Peak() != 0 {
		t.Fatal("expected silent output")
	}
}

func TestDubRejectsUnknownTargetLanguage(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline(t).Dub(context.Background(), Request{Segments: scenarioSegments(), TargetLanguage: "not a language!"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Stage != stage.Validate {
		t.Fatalf("expected validate stage failure, got %v", err)
	}
}

func TestDubWritesWAVOutput(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "dub.wav")
	_, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		TargetLanguage: "es",
		OutputPath:     out,
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	clip := testsupport.ReadWAV(t, out)
	if math.Abs(clip.Seconds()-6.5) > 1e-3 {
		t.Fatalf("output length = %v", clip.Seconds())
	}
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the output file, got %d entries", len(entries))
	}
	if got := testutil.ToFloat64(f.metrics.JobsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("success metric = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.TrackSeconds); math.Abs(got-6.5) > 1e-6 {
		t.Fatalf("track gauge = %v", got)
	}
}

func TestDubTranscodesThroughTempFile(t *testing.T) {
	f := newFixture(t)
	tc := &copyTranscoder{}
	f.deps.Transcoder = tc
	dir := t.TempDir()
	out := filepath.Join(dir, "dub.flac")
	if _, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		TargetLanguage: "es",
		OutputPath:     out,
	}); err != nil {
		t.Fatalf("Dub: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output: %v", err)
	}
	if len(tc.srcs) != 1 || tc.srcs[0] == out {
		t.Fatalf("expected a single transcode from a temp wav, got %v", tc.srcs)
	}
	if tc.langs[0] != "spa" {
		t.Fatalf("transcode language = %q, want spa", tc.langs[0])
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, got %d entries", len(entries))
	}
}

func TestDubLeavesNoOutputWhenWriteFails(t *testing.T) {
	cases := map[string]Transcoder{
		"no transcoder":    nil,
		"transcoder fails": failingTranscoder{},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.deps.Transcoder = tc
			dir := t.TempDir()
			out := filepath.Join(dir, "dub.mp3")
			_, err := f.pipeline(t).Dub(context.Background(), Request{
				Segments:       scenarioSegments(),
				TargetLanguage: "es",
				OutputPath:     out,
			})
			var jobErr *JobError
			if !errors.As(err, &jobErr) || jobErr.Stage != stage.Write {
				t.Fatalf("expected write stage failure, got %v", err)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Fatalf("expected empty output dir, got %d entries", len(entries))
			}
		})
	}
}

func TestDubCancelledLeavesNoOutput(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "dub.wav")
	_, err := f.pipeline(t).Dub(ctx, Request{
		Segments:       scenarioSegments(),
		TargetLanguage: "es",
		OutputPath:     out,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output, stat err = %v", statErr)
	}
	if got := testutil.ToFloat64(f.metrics.JobsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed metric = %v", got)
	}
}

func TestPrepareClampsAndDrops(t *testing.T) {
	segments := []speakers.Segment{
		{Start: -1, End: 1, Text: " hi "},
		{Start: 1, End: 1.05, Text: "short"},
		{Start: 2, End: 12, Text: "long"},
		{Start: 11, End: 12, Text: "after"},
		{Start: math.NaN(), End: 1, Text: "nan"},
	}
	got := prepare(segments, 0.1, 10)
	if len(got.segments) != 3 || got.dropped != 2 {
		t.Fatalf("kept=%d dropped=%d", len(got.segments), got.dropped)
	}
	if got.segments[0].Start != 0 || got.segments[0].Text != "hi" {
		t.Fatalf("first segment not normalised: %+v", got.segments[0])
	}
	if got.budgets[1] != 0.1 {
		t.Fatalf("short segment budget = %v, want floor 0.1", got.budgets[1])
	}
	if got.segments[2].End != 10 || got.segments[2].Index != 2 {
		t.Fatalf("long segment not clamped: %+v", got.segments[2])
	}
}

func TestPrepareOrdersByStart(t *testing.T) {
	segments := []speakers.Segment{
		{Start: 4, End: 5, Text: "late"},
		{Start: 0, End: 1, Text: "early"},
		{Start: 2, End: 3, Text: "middle"},
	}
	got := prepare(segments, 0.1, 0)
	wantIndex := []int{1, 2, 0}
	if len(got.segments) != len(wantIndex) {
		t.Fatalf("kept=%d", len(got.segments))
	}
	for i, seg := range got.segments {
		if seg.Index != wantIndex[i] {
			t.Fatalf("segment %d has index %d, want %d", i, seg.Index, wantIndex[i])
		}
		if got.budgets[i] != seg.Duration() {
			t.Fatalf("budget %d = %v does not follow its segment", i, got.budgets[i])
		}
	}
}

func TestTrackBound(t *testing.T) {
	tests := []struct {
		recording float64
		limit     time.Duration
		want      float64
	}{
		{0, time.Hour, 3600},
		{90, time.Hour, 90},
		{7200, time.Hour, 3600},
		{90, 0, 90},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := trackBound(tt.recording, tt.limit); got != tt.want {
			t.Errorf("trackBound(%v, %v) = %v, want %v", tt.recording, tt.limit, got, tt.want)
		}
	}
}

func TestDubDropsSegmentsPastMaxTrack(t *testing.T) {
	f := newFixture(t)
	p, err := New(f.deps, Options{SampleRate: testRate, MaxTrack: time.Minute}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	segments := append(scenarioSegments(), speakers.Segment{Start: 125000, End: 125002, Text: "alpha"})
	res, err := p.Dub(context.Background(), Request{
		Segments:       segments,
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	if len(res.Clips) != 3 || res.Summary.DroppedSegments != 1 {
		t.Fatalf("clips=%d dropped=%d", len(res.Clips), res.Summary.DroppedSegments)
	}
	if got := res.Track.Seconds(); got > 60 {
		t.Fatalf("track length = %v, want within the limit", got)
	}
}

func TestDubLoadsSourceLanguageStream(t *testing.T) {
	f := newFixture(t)
	loader := &unreadableLoader{}
	loader.stream.Store(-1)
	f.deps.Loader = loader
	f.deps.Prober = streamProber{result: ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio", Tags: map[string]string{"language": "ger"}, Disposition: map[string]int{"default": 1}},
			{Index: 2, CodecType: "audio", Tags: map[string]string{"language": "eng"}},
		},
		Format: ffprobe.Format{Duration: "10"},
	}}
	res, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		SourceAudio:    "talk.mkv",
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("Dub: %v", err)
	}
	if got := loader.stream.Load(); got != 1 {
		t.Fatalf("expected audio stream 1, got %d", got)
	}
	if len(res.Clips) != 3 {
		t.Fatalf("expected profiling failure to degrade, got %d clips", len(res.Clips))
	}
}

func TestDubContinuesWhenSourceInspectionFails(t *testing.T) {
	f := newFixture(t)
	loader := &unreadableLoader{}
	loader.stream.Store(-1)
	f.deps.Loader = loader
	f.deps.Prober = failingInspector{}
	res, err := f.pipeline(t).Dub(context.Background(), Request{
		Segments:       scenarioSegments(),
		SourceAudio:    "talk.mkv",
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	if err != nil {
		t.Fatalf("expected inspection failure to degrade, got %v", err)
	}
	if got := loader.stream.Load(); got != -1 {
		t.Fatalf("expected profiling to be skipped, loader saw stream %d", got)
	}
	if len(res.Clips) != 3 || f.backend.calls.Load() != 3 {
		t.Fatalf("expected every segment synthesized, got %d clips and %d calls", len(res.Clips), f.backend.calls.Load())
	}
}
