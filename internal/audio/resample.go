package audio

import "github.com/gopxl/beep"

// resampleQuality is the beep interpolation window; 4 is the library's
// recommended speech-grade setting.
const resampleQuality = 4

// Resample converts the clip to rate. Equal rates and empty clips return a copy.
func (c Clip) Resample(rate int) Clip {
	if rate <= 0 || c.SampleRate <= 0 {
		return c.Clone()
	}
	if rate == c.SampleRate || len(c.Samples) == 0 {
		out := c.Clone()
		out.SampleRate = rate
		return out
	}
	resampler := beep.Resample(resampleQuality, beep.SampleRate(c.SampleRate), beep.SampleRate(rate), &clipStreamer{samples: c.Samples})
	expected := int(float64(len(c.Samples)) * float64(rate) / float64(c.SampleRate))
	out := make([]float64, 0, expected+resampleQuality)
	buf := make([][2]float64, 512)
	for {
		n, ok := resampler.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, buf[i][0])
		}
		if !ok || n == 0 {
			break
		}
	}
	if len(out) > expected {
		out = out[:expected]
	}
	return Clip{Samples: out, SampleRate: rate}
}
