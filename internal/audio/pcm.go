package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeS16LE converts little-endian signed 16-bit mono PCM to a clip.
func DecodeS16LE(data []byte, sampleRate int) (Clip, error) {
	if len(data)%2 != 0 {
		return Clip{}, fmt.Errorf("s16le: odd byte count %d", len(data))
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return Clip{Samples: samples, SampleRate: sampleRate}, nil
}

// EncodeS16LE converts a clip to little-endian signed 16-bit PCM, clipping
// out-of-range samples.
func EncodeS16LE(c Clip) []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(s)))
	}
	return out
}

func toInt16(s float64) int16 {
	v := math.Round(s * 32767.0)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
