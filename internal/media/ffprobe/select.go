package ffprobe

import (
	"fmt"
	"strings"

	"dubber/internal/language"
)

// Selection identifies the audio stream the dub is analysed from.
type Selection struct {
	Stream Stream
	// Ordinal is the position among audio streams, as used by -map 0:a:N.
	Ordinal int
	Label   string
	// Candidates is the number of audio streams considered.
	Candidates int
}

type candidate struct {
	stream  Stream
	ordinal int
	score   int
}

var nonDialogueMarkers = []string{"commentary", "description", "descriptive", "music only", "karaoke", "isolated score"}

// SelectSpeech picks the audio stream most likely to carry the spoken
// source dialogue. A stream tagged with source wins over untagged ones;
// commentary and description tracks are avoided; the default disposition
// and earlier streams break ties. ok is false when no audio stream exists.
func SelectSpeech(streams []Stream, source language.Code) (Selection, bool) {
	var best *candidate
	ordinal := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		c := candidate{stream: stream, ordinal: ordinal, score: speechScore(stream, source)}
		ordinal++
		if best == nil || c.score > best.score {
			picked := c
			best = &picked
		}
	}
	if best == nil {
		return Selection{}, false
	}
	return Selection{
		Stream:     best.stream,
		Ordinal:    best.ordinal,
		Label:      describe(best.stream),
		Candidates: ordinal,
	}, true
}

func speechScore(stream Stream, source language.Code) int {
	score := 0
	if tagged := streamLanguage(stream); tagged != "" && source != "" {
		if tagged == source {
			score += 1000
		} else {
			score -= 200
		}
	}
	title := strings.ToLower(stream.Tags["title"])
	for _, marker := range nonDialogueMarkers {
		if strings.Contains(title, marker) {
			score -= 500
			break
		}
	}
	if stream.Disposition["comment"] == 1 || stream.Disposition["visual_impaired"] == 1 {
		score -= 500
	}
	if stream.Disposition["default"] == 1 {
		score += 50
	}
	return score
}

func streamLanguage(stream Stream) language.Code {
	raw := strings.TrimSpace(stream.Tags["language"])
	if raw == "" || strings.EqualFold(raw, "und") {
		return ""
	}
	code, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return code
}

func describe(stream Stream) string {
	parts := []string{fmt.Sprintf("#%d", stream.Index)}
	if stream.CodecName != "" {
		parts = append(parts, stream.CodecName)
	}
	if stream.ChannelLayout != "" {
		parts = append(parts, stream.ChannelLayout)
	} else if stream.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", stream.Channels))
	}
	if code := streamLanguage(stream); code != "" {
		parts = append(parts, string(code))
	}
	if title := strings.TrimSpace(stream.Tags["title"]); title != "" {
		parts = append(parts, fmt.Sprintf("%q", title))
	}
	return strings.Join(parts, " ")
}
