package features

// Gender classes derived from a profile.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderUnknown = "unknown"
)

// Emotion classes derived from a profile.
const (
	EmotionExcited   = "excited"
	EmotionEmotional = "emotional"
	EmotionCalm      = "calm"
	EmotionNeutral   = "neutral"
)

var (
	malePitchRange   = [2]float64{85, 180}
	femalePitchRange = [2]float64{165, 255}
)

const brightCentroidHz = 2000

// Gender classifies by mean pitch, falling back to spectral brightness when
// the pitch is outside both ranges or missing. The male range wins the
// 165-180 Hz overlap.
func Gender(p Profile) string {
	if pitch, ok := p.Get(PitchMean); ok {
		switch {
		case pitch >= malePitchRange[0] && pitch <= malePitchRange[1]:
			return GenderMale
		case pitch >= femalePitchRange[0] && pitch <= femalePitchRange[1]:
			return GenderFemale
		}
	}
	centroid, ok := p.Get(SpectralCentroidMean)
	if !ok {
		if _, hasPitch := p.Get(PitchMean); !hasPitch {
			return GenderUnknown
		}
		return GenderMale
	}
	if centroid > brightCentroidHz {
		return GenderFemale
	}
	return GenderMale
}

// Emotion classifies delivery from energy, zero-crossing rate, and pitch spread.
func Emotion(p Profile) string {
	energy := p.Value(EnergyMean)
	switch {
	case energy > 0.1 && p.Value(SpeakingRate) > 0.05:
		return EmotionExcited
	case p.Value(PitchStd) > 50:
		return EmotionEmotional
	case energy < 0.05:
		return EmotionCalm
	default:
		return EmotionNeutral
	}
}
