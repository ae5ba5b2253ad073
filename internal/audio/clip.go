package audio

import (
	"math"
	"time"
)

// Clip is a mono buffer of samples in [-1, 1] at SampleRate Hz.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Silence returns a zero-filled clip of the given length.
func Silence(d time.Duration, sampleRate int) Clip {
	n := SamplesFor(d, sampleRate)
	return Clip{Samples: make([]float64, n), SampleRate: sampleRate}
}

// SamplesFor converts a duration to a sample count at rate, rounding to the
// nearest sample.
func SamplesFor(d time.Duration, sampleRate int) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds returns the clip length in seconds.
func (c Clip) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Clone returns a deep copy.
func (c Clip) Clone() Clip {
	out := Clip{SampleRate: c.SampleRate}
	if c.Samples != nil {
		out.Samples = make([]float64, len(c.Samples))
		copy(out.Samples, c.Samples)
	}
	return out
}

// Slice returns the samples between start and end (seconds), clamped to the
// clip bounds. The result shares no memory with c.
func (c Clip) Slice(start, end float64) Clip {
	if c.SampleRate <= 0 || end <= start {
		return Clip{SampleRate: c.SampleRate}
	}
	from := int(math.Floor(start * float64(c.SampleRate)))
	to := int(math.Ceil(end * float64(c.SampleRate)))
	from = max(0, min(from, len(c.Samples)))
	to = max(from, min(to, len(c.Samples)))
	out := make([]float64, to-from)
	copy(out, c.Samples[from:to])
	return Clip{Samples: out, SampleRate: c.SampleRate}
}

// Peak returns the maximum absolute sample value.
func (c Clip) Peak() float64 {
	peak := 0.0
	for _, s := range c.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}
