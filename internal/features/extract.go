package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dubber/internal/audio"
	"dubber/internal/services"
)

const (
	FrameSize = 1024
	HopSize   = 512

	// MinRangeSeconds is the shortest range Extract will analyse.
	MinRangeSeconds = 0.1

	minPitchHz       = 60.0
	maxPitchHz       = 400.0
	voicingThreshold = 0.3
	// octaveTolerance picks the shortest lag whose correlation is within this
	// fraction of the best one, which avoids sub-harmonic picks on clean tones.
	octaveTolerance = 0.9
	silentFrameRMS  = 1e-4
	magnitudeFloor  = 1e-10
)

// Extract computes the acoustic profile of clip between start and end seconds.
func Extract(clip audio.Clip, start, end float64) (Profile, error) {
	if end-start < MinRangeSeconds {
		return nil, services.Wrap(services.ErrEmptyInput, "profile", "extract",
			fmt.Sprintf("range %.3fs shorter than %.1fs", end-start, MinRangeSeconds), nil)
	}
	part := clip.Slice(start, end)
	if part.Seconds() < MinRangeSeconds {
		return nil, services.Wrap(services.ErrEmptyInput, "profile", "extract", "range outside recording", nil)
	}
	return Analyze(part)
}

// Analyze computes the acoustic profile of a whole clip.
func Analyze(clip audio.Clip) (Profile, error) {
	if clip.SampleRate <= 0 || clip.Empty() {
		return nil, services.Wrap(services.ErrEmptyInput, "profile", "analyze", "no samples", nil)
	}
	rate := float64(clip.SampleRate)
	frames := frameSignal(clip.Samples, FrameSize, HopSize)

	rms := make([]float64, 0, len(frames))
	zcr := make([]float64, 0, len(frames))
	var pitches, centroids, timbres []float64

	fft := fourier.NewFFT(FrameSize)
	windowed := make([]float64, FrameSize)
	coeffs := make([]complex128, FrameSize/2+1)

	for _, frame := range frames {
		level := frameRMS(frame)
		rms = append(rms, level)
		zcr = append(zcr, zeroCrossingRate(frame))
		if level < silentFrameRMS {
			continue
		}
		if f0, ok := framePitch(frame, rate); ok {
			pitches = append(pitches, f0)
		}

		copy(windowed, frame)
		window.Hann(windowed)
		coeffs = fft.Coefficients(coeffs, windowed)
		if centroid, timbre, ok := spectralStats(fft, coeffs, rate); ok {
			centroids = append(centroids, centroid)
			timbres = append(timbres, timbre)
		}
	}

	p := Profile{}
	p[EnergyMean], p[EnergyStd] = stat.PopMeanStdDev(rms, nil)
	p[SpeakingRate] = stat.Mean(zcr, nil)
	if len(pitches) > 0 {
		p[PitchMean], p[PitchStd] = stat.PopMeanStdDev(pitches, nil)
		p[PitchRange] = floats.Max(pitches) - floats.Min(pitches)
	}
	if len(centroids) > 0 {
		p[SpectralCentroidMean], p[SpectralCentroidStd] = stat.PopMeanStdDev(centroids, nil)
		p[TimbreMean], p[TimbreStd] = stat.PopMeanStdDev(timbres, nil)
	}
	return p, nil
}

// frameSignal splits samples into zero-padded frames of size advancing by hop.
func frameSignal(samples []float64, size, hop int) [][]float64 {
	if len(samples) == 0 {
		return nil
	}
	var frames [][]float64
	for start := 0; start < len(samples); start += hop {
		frame := make([]float64, size)
		copy(frame, samples[start:min(start+size, len(samples))])
		frames = append(frames, frame)
		if start+size >= len(samples) {
			break
		}
	}
	return frames
}

func frameRMS(frame []float64) float64 {
	return math.Sqrt(floats.Dot(frame, frame) / float64(len(frame)))
}

func zeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame))
}

// framePitch estimates f0 with normalised autocorrelation over the lag range
// covering minPitchHz..maxPitchHz.
func framePitch(frame []float64, rate float64) (float64, bool) {
	minLag := int(math.Floor(rate / maxPitchHz))
	maxLag := int(math.Ceil(rate / minPitchHz))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(frame)-1 {
		maxLag = len(frame) - 2
	}
	if maxLag <= minLag {
		return 0, false
	}

	corr := make([]float64, maxLag+2)
	best := 0.0
	for lag := minLag; lag <= maxLag+1 && lag < len(frame); lag++ {
		a := frame[:len(frame)-lag]
		b := frame[lag:]
		denom := math.Sqrt(floats.Dot(a, a) * floats.Dot(b, b))
		if denom == 0 {
			continue
		}
		corr[lag] = floats.Dot(a, b) / denom
		if lag <= maxLag && corr[lag] > best {
			best = corr[lag]
		}
	}
	if best <= voicingThreshold {
		return 0, false
	}
	for lag := minLag; lag <= maxLag; lag++ {
		c := corr[lag]
		if c < best*octaveTolerance {
			continue
		}
		if c >= corr[lag-1] && c >= corr[lag+1] {
			return rate / float64(lag), true
		}
	}
	return 0, false
}

// spectralStats returns the magnitude-weighted mean frequency and the mean
// log-magnitude (dB) of one frame's spectrum.
func spectralStats(fft *fourier.FFT, coeffs []complex128, rate float64) (float64, float64, bool) {
	var weighted, total, logSum float64
	for i, c := range coeffs {
		mag := math.Hypot(real(c), imag(c))
		weighted += fft.Freq(i) * rate * mag
		total += mag
		logSum += 20 * math.Log10(mag+magnitudeFloor)
	}
	if total == 0 {
		return 0, 0, false
	}
	return weighted / total, logSum / float64(len(coeffs)), true
}
