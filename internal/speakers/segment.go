package speakers

import "sort"

// Segment is one recognised utterance. Index is its position in the job input
// and is preserved through every stage.
type Segment struct {
	Index   int     `json:"index"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Duration returns End-Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Midpoint returns the centre of the segment in seconds.
func (s Segment) Midpoint() float64 {
	return (s.Start + s.End) / 2
}

// WithSpeaker returns a copy tagged with speaker.
func (s Segment) WithSpeaker(speaker string) Segment {
	s.Speaker = speaker
	return s
}

// SortByStart returns a copy of segments ordered by start time, keeping input
// order for equal starts.
func SortByStart(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
