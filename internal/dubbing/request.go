package dubbing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"dubber/internal/language"
	"dubber/internal/services"
	"dubber/internal/speakers"
)

// Request describes one dubbing job.
type Request struct {
	// JobID is generated when empty.
	JobID    string
	Segments []speakers.Segment
	// Timeline supplies diarization turns. When nil the pipeline's diarizer is
	// used on SourceAudio if both are available; otherwise the timeline is
	// treated as absent.
	Timeline speakers.TimelineSource
	// SourceAudio is the recording used for speaker profiling. Optional.
	SourceAudio    string
	SourceLanguage language.Code
	TargetLanguage language.Code
	// OutputPath receives the track. When empty the track is only returned.
	OutputPath string
}

// prepared is the cleaned segment list with per-segment duration budgets.
type prepared struct {
	segments []speakers.Segment
	budgets  []float64
	dropped  int
}

// DefaultMaxTrack bounds segment times when no recording length is known.
const DefaultMaxTrack = 6 * time.Hour

// trackBound returns the latest usable segment time: the recording length when
// known, never beyond limit.
func trackBound(recordingSeconds float64, limit time.Duration) float64 {
	bound := limit.Seconds()
	if recordingSeconds > 0 && (bound <= 0 || recordingSeconds < bound) {
		return recordingSeconds
	}
	return bound
}

// prepare indexes, orders, filters, and bounds segments. Indexes are positions
// in the original request so dropped segments leave gaps in numbering.
// Segments are returned in start order.
func prepare(segments []speakers.Segment, minSegment, boundSeconds float64) prepared {
	var out prepared
	indexed := make([]speakers.Segment, 0, len(segments))
	for i, seg := range segments {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			out.dropped++
			continue
		}
		seg.Index = i
		indexed = append(indexed, seg)
	}
	for _, seg := range speakers.SortByStart(indexed) {
		seg.Text = strings.TrimSpace(seg.Text)
		seg.Start = math.Max(0, seg.Start)
		if boundSeconds > 0 {
			if seg.Start >= boundSeconds {
				out.dropped++
				continue
			}
			seg.End = math.Min(seg.End, boundSeconds)
		}
		if seg.Text == "" || seg.End <= seg.Start {
			out.dropped++
			continue
		}
		out.segments = append(out.segments, seg)
		out.budgets = append(out.budgets, math.Max(seg.Duration(), minSegment))
	}
	return out
}

// normalizeRequest validates req and canonicalises its language codes.
func normalizeRequest(req Request) (Request, error) {
	if strings.TrimSpace(string(req.TargetLanguage)) == "" {
		return req, services.Wrap(services.ErrValidation, "validate", "request", "target language required", nil)
	}
	target, err := language.Parse(string(req.TargetLanguage))
	if err != nil {
		return req, services.Wrap(services.ErrValidation, "validate", "request", "unknown target language", err)
	}
	req.TargetLanguage = target
	if strings.TrimSpace(string(req.SourceLanguage)) != "" {
		source, err := language.Parse(string(req.SourceLanguage))
		if err != nil {
			return req, services.Wrap(services.ErrValidation, "validate", "request", "unknown source language", err)
		}
		req.SourceLanguage = source
	}
	req.OutputPath = strings.TrimSpace(req.OutputPath)
	if strings.HasSuffix(req.OutputPath, "/") {
		return req, services.Wrap(services.ErrValidation, "validate", "request", fmt.Sprintf("output path %q is a directory", req.OutputPath), nil)
	}
	return req, nil
}
