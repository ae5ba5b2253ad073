package dubbing

import (
	"dubber/internal/speakers"
	"dubber/internal/synth"
)

// Summary reports a finished job for progress and status displays.
type Summary struct {
	JobID            string             `json:"job_id"`
	SourceLanguage   string             `json:"source_language,omitempty"`
	TargetLanguage   string             `json:"target_language"`
	ResolutionMethod string             `json:"resolution_method,omitempty"`
	CatalogSource    string             `json:"catalog_source,omitempty"`
	Segments         int                `json:"segments"`
	DroppedSegments  int                `json:"dropped_segments"`
	Speakers         []speakers.Summary `json:"speakers"`
	// Distributions count speakers per dominant class.
	GenderDistribution  map[string]int `json:"gender_distribution"`
	EmotionDistribution map[string]int `json:"emotion_distribution"`
	TranslationTiers    map[string]int `json:"translation_tiers"`
	CacheHits           int            `json:"cache_hits"`
	Stretched           int            `json:"stretched"`
	Clamped             int            `json:"clamped"`
	Silent              int            `json:"silent"`
	TrackSeconds        float64        `json:"track_seconds"`
	TrackPeak           float64        `json:"track_peak"`
	Placeholder         bool           `json:"placeholder,omitempty"`
	OutputPath          string         `json:"output_path,omitempty"`
}

func (j *job) summary() Summary {
	s := Summary{
		JobID:               j.id,
		SourceLanguage:      string(j.req.SourceLanguage),
		TargetLanguage:      string(j.req.TargetLanguage),
		ResolutionMethod:    j.resolution.Method,
		CatalogSource:       j.catalogSource,
		Segments:            len(j.translated),
		DroppedSegments:     j.prep.dropped,
		GenderDistribution:  map[string]int{},
		EmotionDistribution: map[string]int{},
		TranslationTiers:    map[string]int{},
		TrackSeconds:        j.track.Seconds(),
		TrackPeak:           j.track.Audio.Peak(),
		Placeholder:         j.track.Placeholder,
		OutputPath:          j.req.OutputPath,
	}
	assigned := make(map[string]speakers.VoiceInfo, len(j.assignments))
	for _, a := range j.assignments {
		assigned[a.Speaker] = speakers.VoiceInfo{ID: a.VoiceID, Name: a.VoiceName, Score: a.Score}
	}
	s.Speakers = speakers.Summarize(j.speakers, assigned)
	for _, sp := range j.speakers {
		s.GenderDistribution[sp.Gender]++
		s.EmotionDistribution[sp.Emotion]++
	}
	for _, seg := range j.translated {
		s.TranslationTiers[seg.Tier]++
	}
	for _, c := range j.clips {
		if c.CacheHit {
			s.CacheHits++
		}
		switch c.Action {
		case synth.ActionStretched:
			s.Stretched++
		case synth.ActionClamped:
			s.Stretched++
			s.Clamped++
		case synth.ActionSilent:
			s.Silent++
		}
	}
	return s
}
