package translate

import (
	"fmt"
	"math/bits"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-dedup/simhash"

	"dubber/internal/language"
	"dubber/internal/services"
)

const (
	// echoMaxDistance is the SimHash Hamming distance at or below which an
	// output counts as the untranslated source.
	echoMaxDistance = 6
	echoMinWords    = 4
)

// Quality holds the rejection predicates applied to every tier's output.
type Quality struct {
	CorruptionMarkers []string
	MinChars          int
	RejectEcho        bool
}

// Check returns an error wrapping services.ErrTranslationQualityReject when
// output must be discarded.
func (q Quality) Check(source, output string, from, to language.Code) error {
	if strings.TrimSpace(output) == "" {
		return reject("empty output")
	}
	minChars := q.MinChars
	if minChars <= 0 {
		minChars = 2
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(source)); n < minChars {
		minChars = n
	}
	if utf8.RuneCountInString(output) < minChars {
		return reject(fmt.Sprintf("output shorter than %d characters", minChars))
	}
	for _, marker := range q.CorruptionMarkers {
		if marker != "" && strings.Contains(output, marker) {
			return reject(fmt.Sprintf("corruption marker %q", marker))
		}
	}
	if q.RejectEcho && from != "" && from != to && WordCount(source) >= echoMinWords {
		if d := echoDistance(source, output); d <= echoMaxDistance {
			return reject(fmt.Sprintf("output echoes source (simhash distance %d)", d))
		}
	}
	return nil
}

func reject(reason string) error {
	return fmt.Errorf("%w: %s", services.ErrTranslationQualityReject, reason)
}

// Clean trims, strips one pair of surrounding quotes and collapses whitespace.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"«", "»"}, {"„", "“"}} {
		if len(text) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			text = strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
			break
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

type wordFeatures []string

func (w wordFeatures) GetFeatures() []simhash.Feature {
	out := make([]simhash.Feature, 0, 2*len(w))
	for i, word := range w {
		out = append(out, simhash.NewFeature([]byte(word)))
		if i > 0 {
			out = append(out, simhash.NewFeature([]byte(w[i-1]+" "+word)))
		}
	}
	return out
}

func tokens(text string) wordFeatures {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func echoDistance(a, b string) int {
	sh := simhash.NewSimhash()
	return bits.OnesCount64(sh.GetSimhash(tokens(a)) ^ sh.GetSimhash(tokens(b)))
}
