package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// clipStreamer feeds a mono clip to beep as duplicated stereo frames.
type clipStreamer struct {
	samples []float64
	pos     int
}

func (s *clipStreamer) Stream(frames [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := copyFrames(frames, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *clipStreamer) Err() error { return nil }

func copyFrames(frames [][2]float64, samples []float64) int {
	n := min(len(frames), len(samples))
	for i := 0; i < n; i++ {
		frames[i][0] = samples[i]
		frames[i][1] = samples[i]
	}
	return n
}

// WriteWAV encodes the clip as 16-bit mono WAV.
func WriteWAV(w io.WriteSeeker, c Clip) error {
	if c.SampleRate <= 0 {
		return errors.New("wav: sample rate must be positive")
	}
	format := beep.Format{SampleRate: beep.SampleRate(c.SampleRate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(w, &clipStreamer{samples: c.Samples}, format); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	return nil
}

// WriteWAVFile writes the clip to path, replacing any existing file.
func WriteWAVFile(path string, c Clip) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	if err := WriteWAV(file, c); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// decodeGain restores full scale for the beep wav decoder, which divides 16-
// and 24-bit PCM by the unsigned range rather than the signed one. 8-bit
// input is already full scale.
func decodeGain(precision int) float64 {
	switch precision {
	case 2:
		return float64(1<<16-1) / float64(1<<15-1)
	case 3:
		return float64(1<<24-1) / float64(1<<23-1)
	default:
		return 1
	}
}

// ReadWAV decodes a WAV stream into a mono clip, averaging channels.
func ReadWAV(r io.Reader) (Clip, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return Clip{}, fmt.Errorf("wav decode: %w", err)
	}
	defer streamer.Close()

	gain := decodeGain(format.Precision)
	samples := make([]float64, 0, streamer.Len())
	buf := make([][2]float64, 1024)
	for {
		n, ok := streamer.Stream(buf)
		for i := range n {
			if format.NumChannels == 1 {
				samples = append(samples, buf[i][0]*gain)
			} else {
				samples = append(samples, (buf[i][0]+buf[i][1])/2*gain)
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return Clip{}, fmt.Errorf("wav stream: %w", err)
	}
	return Clip{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()
	return ReadWAV(file)
}
