package features

import "maps"

// Feature names carried in a Profile.
const (
	EnergyMean           = "energy_mean"
	EnergyStd            = "energy_std"
	SpeakingRate         = "speaking_rate"
	PitchMean            = "pitch_mean"
	PitchStd             = "pitch_std"
	PitchRange           = "pitch_range"
	SpectralCentroidMean = "spectral_centroid_mean"
	SpectralCentroidStd  = "spectral_centroid_std"
	TimbreMean           = "timbre_mean"
	TimbreStd            = "timbre_std"
)

// Profile maps feature names to values. Absent keys mean the feature could
// not be measured (for example, pitch on unvoiced audio).
type Profile map[string]float64

// Get returns a feature value and whether it was measured.
func (p Profile) Get(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}

// Value returns a feature value or 0 when absent.
func (p Profile) Value(name string) float64 {
	return p[name]
}

// Clone returns an independent copy.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Mean averages profiles feature-wise, using only the profiles in which each
// feature is present. Returns an empty profile for no input.
func Mean(profiles []Profile) Profile {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range profiles {
		for k, v := range p {
			sums[k] += v
			counts[k]++
		}
	}
	out := make(Profile, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}
