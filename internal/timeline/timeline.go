// Package timeline places per-segment clips on a single output track.
//
// Clips are laid down strictly one after another in original start order.
// Silence is inserted whenever the track is behind a clip's original start;
// a clip whose predecessor overran starts immediately after it. Positions are
// tracked in samples so rounding never accumulates.
package timeline

import (
	"math"
	"sort"
	"time"

	"dubber/internal/audio"
)

// DefaultPlaceholder is the length of the silent track emitted for empty input.
const DefaultPlaceholder = time.Second

// Clip is one segment's audio with its original timing.
type Clip struct {
	Index int
	// Start and End are the original segment bounds in seconds.
	Start float64
	End   float64
	Audio audio.Clip
}

// Placement records where a clip landed.
type Placement struct {
	Index         int     `json:"index"`
	OriginalStart float64 `json:"original_start"`
	PlacedStart   float64 `json:"placed_start"`
	// Gap is the silence inserted before the clip.
	Gap      float64 `json:"gap"`
	Duration float64 `json:"duration"`
	// Overrun is how late the clip starts relative to its original start.
	Overrun float64 `json:"overrun"`
}

// Track is the assembled output.
type Track struct {
	Audio      audio.Clip
	Placements []Placement
	// Placeholder is set when the input was empty.
	Placeholder bool
}

// Seconds returns the track length.
func (t Track) Seconds() float64 {
	return t.Audio.Seconds()
}

// Options configures Assemble.
type Options struct {
	SampleRate  int
	Placeholder time.Duration
}

// Assemble builds the track. Clips at other rates are resampled. The input is
// not modified.
func Assemble(clips []Clip, opts Options) Track {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	if opts.Placeholder <= 0 {
		opts.Placeholder = DefaultPlaceholder
	}
	if len(clips) == 0 {
		return Track{Audio: audio.Silence(opts.Placeholder, opts.SampleRate), Placeholder: true}
	}

	ordered := make([]Clip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	rate := float64(opts.SampleRate)
	total := 0
	for _, c := range ordered {
		total = max(total, samplesAt(c.Start, rate)) + len(c.Audio.Samples)
	}
	samples := make([]float64, 0, total)
	placements := make([]Placement, 0, len(ordered))

	for _, c := range ordered {
		clip := c.Audio
		if clip.SampleRate != opts.SampleRate {
			clip = clip.Resample(opts.SampleRate)
		}
		pos := len(samples)
		gap := 0
		if start := samplesAt(c.Start, rate); pos < start {
			gap = start - pos
			samples = append(samples, make([]float64, gap)...)
			pos = start
		}
		samples = append(samples, clip.Samples...)
		placed := float64(pos) / rate
		placements = append(placements, Placement{
			Index:         c.Index,
			OriginalStart: c.Start,
			PlacedStart:   placed,
			Gap:           float64(gap) / rate,
			Duration:      float64(len(clip.Samples)) / rate,
			Overrun:       math.Max(0, placed-math.Max(0, c.Start)),
		})
	}
	return Track{
		Audio:      audio.Clip{Samples: samples, SampleRate: opts.SampleRate},
		Placements: placements,
	}
}

func samplesAt(seconds, rate float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * rate))
}
