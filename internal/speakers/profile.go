package speakers

import "dubber/internal/features"

// SampleIndexes selects, per speaker, the positions in segments of the first n
// segments lasting at least minDuration seconds.
func SampleIndexes(segments []Segment, n int, minDuration float64) map[string][]int {
	picks := make(map[string][]int)
	for i, seg := range segments {
		if seg.Duration() < minDuration {
			continue
		}
		if len(picks[seg.Speaker]) >= n {
			continue
		}
		picks[seg.Speaker] = append(picks[seg.Speaker], i)
	}
	return picks
}

// DominantProfiles averages each speaker's sampled profiles feature-wise.
func DominantProfiles(samples map[string][]features.Profile) map[string]features.Profile {
	out := make(map[string]features.Profile, len(samples))
	for speaker, profiles := range samples {
		out[speaker] = features.Mean(profiles)
	}
	return out
}

// Speaker is the speaker-level view: every segment of a speaker shares this
// dominant profile and its classes.
type Speaker struct {
	ID            string
	Profile       features.Profile
	Gender        string
	Emotion       string
	SegmentCount  int
	TotalDuration float64
	// FirstIndex is the position in the segment list where the speaker first appears.
	FirstIndex int
}

// Speakers lists speakers in order of first appearance in segments. Speakers
// with no dominant profile get an empty one.
func Speakers(segments []Segment, dominant map[string]features.Profile) []Speaker {
	index := make(map[string]int)
	var out []Speaker
	for i, seg := range segments {
		pos, ok := index[seg.Speaker]
		if !ok {
			profile := dominant[seg.Speaker].Clone()
			if profile == nil {
				profile = features.Profile{}
			}
			out = append(out, Speaker{
				ID:         seg.Speaker,
				Profile:    profile,
				Gender:     features.Gender(profile),
				Emotion:    features.Emotion(profile),
				FirstIndex: i,
			})
			pos = len(out) - 1
			index[seg.Speaker] = pos
		}
		out[pos].SegmentCount++
		out[pos].TotalDuration += seg.Duration()
	}
	return out
}

// Summary is the per-speaker progress record.
type Summary struct {
	Speaker       string  `json:"speaker"`
	Segments      int     `json:"segments"`
	Gender        string  `json:"gender"`
	Emotion       string  `json:"emotion"`
	TotalDuration float64 `json:"total_duration_seconds"`
	VoiceID       string  `json:"voice_id,omitempty"`
	VoiceName     string  `json:"voice_name,omitempty"`
	MatchScore    float64 `json:"match_score"`
}

// VoiceInfo is the assigned voice for a speaker.
type VoiceInfo struct {
	ID    string
	Name  string
	Score float64
}

// Summarize builds summaries in speaker order, attaching assigned voices.
func Summarize(speakers []Speaker, voices map[string]VoiceInfo) []Summary {
	out := make([]Summary, 0, len(speakers))
	for _, sp := range speakers {
		s := Summary{
			Speaker:       sp.ID,
			Segments:      sp.SegmentCount,
			Gender:        sp.Gender,
			Emotion:       sp.Emotion,
			TotalDuration: sp.TotalDuration,
		}
		if v, ok := voices[sp.ID]; ok {
			s.VoiceID = v.ID
			s.VoiceName = v.Name
			s.MatchScore = v.Score
		}
		out = append(out, s)
	}
	return out
}
