package translate

import (
	"math"
	"strings"
)

// DefaultWordsPerMinute is the assumed dubbing speaking rate.
const DefaultWordsPerMinute = 150

// TargetWordCount returns max(1, round(seconds/60 * wpm)).
func TargetWordCount(seconds float64, wpm int) int {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	if seconds <= 0 || math.IsNaN(seconds) {
		return 1
	}
	return max(1, int(math.Round(seconds/60*float64(wpm))))
}

// Band returns the inclusive word range target ± tolerance, never below one.
func Band(target int, tolerance float64) (int, int) {
	if tolerance < 0 {
		tolerance = 0
	}
	const eps = 1e-9
	low := int(math.Floor(float64(target)*(1-tolerance) + eps))
	high := int(math.Ceil(float64(target)*(1+tolerance) - eps))
	return max(1, low), max(1, high)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
