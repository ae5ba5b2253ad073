package voices

import (
	"strings"

	"dubber/internal/features"
)

// Pitch bands (Hz) that count as compatible with a declared gender.
var (
	femaleCompatible = [2]float64{150, 250}
	maleCompatible   = [2]float64{80, 160}
)

// Spectral centroid thresholds (Hz) separating young and mature timbre.
const (
	youngCentroidHz  = 2000
	matureCentroidHz = 1500
	energeticLevel   = 0.1
)

// Score rates how well voice fits a speaker profile; higher is better.
// Attributes or features that are absent add nothing.
func Score(profile features.Profile, voice Descriptor) float64 {
	var score float64
	score += genderScore(profile, voice.Attr(AttrGender))
	score += ageScore(profile, voice.Attr(AttrAge))
	if profile.Value(features.EnergyMean) > energeticLevel {
		style := voice.style()
		switch {
		case strings.Contains(style, "energetic"):
			score += 1.5
		case strings.Contains(style, "calm"):
			score += 0.5
		}
	}
	if voice.Attr(AttrAccent) != "" {
		score += 0.5
	}
	return score
}

func genderScore(profile features.Profile, gender string) float64 {
	pitch, ok := profile.Get(features.PitchMean)
	if !ok || pitch <= 0 {
		return 0
	}
	switch gender {
	case "female", "woman":
		if pitch > femaleCompatible[0] && pitch < femaleCompatible[1] {
			return 3
		}
		if pitch <= femaleCompatible[0] {
			return 1
		}
	case "male", "man":
		if pitch > maleCompatible[0] && pitch < maleCompatible[1] {
			return 3
		}
		if pitch >= maleCompatible[1] {
			return 1
		}
	}
	return 0
}

func ageScore(profile features.Profile, age string) float64 {
	centroid, ok := profile.Get(features.SpectralCentroidMean)
	if age == "" || !ok || centroid <= 0 {
		return 0
	}
	young := strings.Contains(age, "young")
	mature := strings.Contains(age, "mature") || strings.Contains(age, "old") || strings.Contains(age, "middle")
	switch {
	case young && centroid > youngCentroidHz, mature && centroid < matureCentroidHz:
		return 2
	case young && centroid < matureCentroidHz, mature && centroid > youngCentroidHz:
		return 0.5
	}
	return 0
}
