package testsupport

import (
	"math"
	"testing"

	"dubber/internal/audio"
)

// Tone returns a sine clip of the given length.
func Tone(freq, seconds float64, sampleRate int) audio.Clip {
	n := int(math.Round(seconds * float64(sampleRate)))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return audio.Clip{Samples: samples, SampleRate: sampleRate}
}

// ReadWAV reads the clip at path.
func ReadWAV(t testing.TB, path string) audio.Clip {
	t.Helper()

	clip, err := audio.ReadWAVFile(path)
	if err != nil {
		t.Fatalf("read wav %s: %v", path, err)
	}
	return clip
}
