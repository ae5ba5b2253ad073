package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/dubbing"
	"dubber/internal/language"
	"dubber/internal/speakers"
)

type dubOptions struct {
	segments    string
	timeline    string
	audio       string
	source      string
	target      string
	output      string
	jobID       string
	metricsFile string
	jsonOutput  bool
}

func newDubCommand(ctx *commandContext) *cobra.Command {
	var opts dubOptions

	cmd := &cobra.Command{
		Use:   "dub",
		Short: "Produce a dubbed audio track from recognised segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDub(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.segments, "segments", "s", "", "Segments JSON file (start, end, text)")
	cmd.Flags().StringVar(&opts.timeline, "timeline", "", "Diarization timeline (.rttm or JSON)")
	cmd.Flags().StringVarP(&opts.audio, "audio", "a", "", "Source recording used for speaker profiling")
	cmd.Flags().StringVar(&opts.source, "source-lang", "", "Source language (defaults to dubbing.source_language)")
	cmd.Flags().StringVarP(&opts.target, "target-lang", "t", "", "Target language")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output audio file (defaults to <output_dir>/<segments>.<lang>.wav)")
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "Job identifier (generated when empty)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the job summary as JSON")
	_ = cmd.MarkFlagRequired("segments")
	_ = cmd.MarkFlagRequired("target-lang")

	return cmd
}

func runDub(cmd *cobra.Command, ctx *commandContext, opts dubOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	segments, err := loadSegments(opts.segments)
	if err != nil {
		return err
	}
	req := dubbing.Request{
		JobID:          strings.TrimSpace(opts.jobID),
		Segments:       segments,
		SourceAudio:    strings.TrimSpace(opts.audio),
		SourceLanguage: language.Code(strings.TrimSpace(opts.source)),
		TargetLanguage: language.Code(strings.TrimSpace(opts.target)),
		OutputPath:     strings.TrimSpace(opts.output),
	}
	if path := strings.TrimSpace(opts.timeline); path != "" {
		turns, err := speakers.LoadTimelineFile(path)
		if err != nil {
			return err
		}
		req.Timeline = speakers.StaticTimeline(turns)
	}
	if req.OutputPath == "" {
		req.OutputPath = defaultOutputPath(cfg.Paths.OutputDir, opts.segments, opts.target)
	}

	rt, err := dubbing.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, dubErr := rt.Pipeline.Dub(cmd.Context(), req)
	if path := strings.TrimSpace(opts.metricsFile); path != "" {
		if err := rt.Metrics.WriteTextfile(path); err != nil {
			dubErr = errors.Join(dubErr, fmt.Errorf("write metrics: %w", err))
		}
	}
	if dubErr != nil {
		return dubErr
	}

	if opts.jsonOutput {
		return writeJSON(cmd, result.Summary)
	}
	printSummary(cmd.OutOrStdout(), result.Summary)
	return nil
}

func defaultOutputPath(dir, segmentsPath, target string) string {
	base := strings.TrimSuffix(filepath.Base(segmentsPath), filepath.Ext(segmentsPath))
	lang := strings.ToLower(strings.TrimSpace(target))
	if code, err := language.Parse(lang); err == nil {
		lang = code.String()
	}
	return filepath.Join(dir, base+"."+lang+".wav")
}

func printSummary(w io.Writer, s dubbing.Summary) {
	heading(w, "Dub job "+s.JobID)
	pairs := [][2]string{
		{"Target language", fmt.Sprintf("%s (%s)", language.DisplayName(language.Code(s.TargetLanguage)), s.TargetLanguage)},
		{"Segments", fmt.Sprintf("%d (%d dropped)", s.Segments, s.DroppedSegments)},
		{"Speaker resolution", valueOr(s.ResolutionMethod, "-")},
		{"Voice catalog", valueOr(s.CatalogSource, "-")},
		{"Translation tiers", formatCounts(s.TranslationTiers)},
		{"Cache hits", strconv.Itoa(s.CacheHits)},
		{"Stretched", fmt.Sprintf("%d (%d clamped)", s.Stretched, s.Clamped)},
		{"Silent", strconv.Itoa(s.Silent)},
		{"Track", fmt.Sprintf("%s (peak %.2f)", formatSeconds(s.TrackSeconds), s.TrackPeak)},
		{"Placeholder", yesNo(s.Placeholder)},
		{"Output", valueOr(s.OutputPath, "-")},
	}
	fmt.Fprintln(w, renderKeyValues(pairs))

	if len(s.Speakers) == 0 {
		return
	}
	fmt.Fprintln(w)
	rows := make([][]string, 0, len(s.Speakers))
	for _, sp := range s.Speakers {
		voice := sp.VoiceName
		if voice == "" {
			voice = sp.VoiceID
		}
		rows = append(rows, []string{
			sp.Speaker,
			strconv.Itoa(sp.Segments),
			formatSeconds(sp.TotalDuration),
			sp.Gender,
			sp.Emotion,
			valueOr(voice, "-"),
		})
	}
	fmt.Fprintln(w, renderTable(speakerColumns, rows))
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
