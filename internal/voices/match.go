package voices

import (
	"fmt"
	"sort"

	"dubber/internal/features"
	"dubber/internal/language"
	"dubber/internal/services"
)

// Candidate is a speaker awaiting a voice.
type Candidate struct {
	Speaker string
	Profile features.Profile
}

// Assignment binds a speaker to a voice for one job.
type Assignment struct {
	Speaker   string  `json:"speaker"`
	VoiceID   string  `json:"voice_id"`
	VoiceName string  `json:"voice_name"`
	Score     float64 `json:"match_score"`
	// Reused is set when the voice was already taken by an earlier speaker.
	Reused bool `json:"reused,omitempty"`
}

// Assignments is ordered like the candidates passed to Match.
type Assignments []Assignment

// For returns the assignment of speaker.
func (a Assignments) For(speaker string) (Assignment, bool) {
	for _, as := range a {
		if as.Speaker == speaker {
			return as, true
		}
	}
	return Assignment{}, false
}

// VoiceIDs maps speakers to voice IDs.
func (a Assignments) VoiceIDs() map[string]string {
	out := make(map[string]string, len(a))
	for _, as := range a {
		out[as.Speaker] = as.VoiceID
	}
	return out
}

// Ranked is a voice with its score for one profile.
type Ranked struct {
	Voice Descriptor
	Score float64
}

// Match assigns a voice to each candidate in order. Each speaker takes its
// best-scoring voice not yet assigned; once every eligible voice is taken the
// speaker reuses its overall best. Equal scores keep catalog order. Returns
// services.ErrNoVoiceForLanguage when no voice declares lang.
func Match(candidates []Candidate, catalog *Catalog, lang language.Code) (Assignments, error) {
	eligible := catalog.ForLanguage(lang)
	if len(eligible) == 0 {
		return nil, services.Wrap(services.ErrNoVoiceForLanguage, "match", "filter",
			fmt.Sprintf("no voice supports %s (%s)", language.DisplayName(lang), lang), nil)
	}

	used := make(map[string]struct{}, len(candidates))
	out := make(Assignments, 0, len(candidates))
	for _, cand := range candidates {
		ranked := Rank(cand.Profile, eligible)
		pick := ranked[0]
		reused := true
		for _, r := range ranked {
			if _, taken := used[r.Voice.ID]; !taken {
				pick = r
				reused = false
				break
			}
		}
		used[pick.Voice.ID] = struct{}{}
		out = append(out, Assignment{
			Speaker:   cand.Speaker,
			VoiceID:   pick.Voice.ID,
			VoiceName: pick.Voice.Label(),
			Score:     pick.Score,
			Reused:    reused,
		})
	}
	return out, nil
}

// Rank orders voices by descending score, keeping input order on ties.
func Rank(profile features.Profile, voices []Descriptor) []Ranked {
	ranked := make([]Ranked, len(voices))
	for i, v := range voices {
		ranked[i] = Ranked{Voice: v, Score: Score(profile, v)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}
