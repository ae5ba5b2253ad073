package speakers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Turn is one diarization entry: speaker held the floor over [Start, End).
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Contains reports whether t falls inside the half-open turn interval.
func (t Turn) Contains(at float64) bool {
	return at >= t.Start && at < t.End
}

// TimelineSource supplies a diarization timeline. An empty result means the
// recording was diarized but no turns were found; an error means diarization
// is unavailable.
type TimelineSource interface {
	Timeline(ctx context.Context) ([]Turn, error)
}

// StaticTimeline is a TimelineSource backed by an in-memory list.
type StaticTimeline []Turn

// Timeline returns a sorted copy of the turns.
func (s StaticTimeline) Timeline(context.Context) ([]Turn, error) {
	return SortTurns(s), nil
}

// SortTurns returns a copy of turns ordered by start, keeping input order for
// equal starts.
func SortTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Labels returns the distinct speaker labels in order of first appearance.
func Labels(turns []Turn) []string {
	seen := make(map[string]struct{}, len(turns))
	var labels []string
	for _, t := range turns {
		if _, ok := seen[t.Speaker]; ok {
			continue
		}
		seen[t.Speaker] = struct{}{}
		labels = append(labels, t.Speaker)
	}
	return labels
}

// LoadTimelineFile reads an RTTM (.rttm) or JSON timeline from path.
func LoadTimelineFile(path string) ([]Turn, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}
	defer file.Close()
	if strings.EqualFold(filepath.Ext(path), ".rttm") {
		return ParseRTTM(file)
	}
	return ParseTimelineJSON(file)
}

// ParseRTTM reads SPEAKER records from NIST RTTM:
//
//	SPEAKER <file> <chan> <onset> <duration> <NA> <NA> <label> <NA> <NA>
func ParseRTTM(r io.Reader) ([]Turn, error) {
	var turns []Turn
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if !strings.EqualFold(fields[0], "SPEAKER") {
			continue
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("rttm line %d: expected at least 8 fields, got %d", lineNo, len(fields))
		}
		onset, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: onset: %w", lineNo, err)
		}
		duration, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: duration: %w", lineNo, err)
		}
		if duration <= 0 {
			continue
		}
		turns = append(turns, Turn{Start: onset, End: onset + duration, Speaker: fields[7]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rttm scan: %w", err)
	}
	return SortTurns(turns), nil
}

// ParseTimelineJSON accepts a bare array of turns or an object carrying the
// array under "turns" or "segments" (pyannote / WhisperX style). Entries with
// end <= start or an empty speaker are skipped.
func ParseTimelineJSON(r io.Reader) ([]Turn, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	var raw []Turn
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
	} else {
		var wrapper struct {
			Turns    []Turn `json:"turns"`
			Segments []Turn `json:"segments"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
		raw = wrapper.Turns
		if len(raw) == 0 {
			raw = wrapper.Segments
		}
	}
	turns := make([]Turn, 0, len(raw))
	for _, t := range raw {
		t.Speaker = strings.TrimSpace(t.Speaker)
		if t.End <= t.Start || t.Speaker == "" {
			continue
		}
		turns = append(turns, t)
	}
	return SortTurns(turns), nil
}
