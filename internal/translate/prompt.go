package translate

import (
	"fmt"
	"strings"

	"dubber/internal/language"
)

// SystemPrompt frames the generative tier.
const SystemPrompt = `You are a professional translator writing dialogue for dubbed video.
Your translation is spoken aloud by a voice actor in the time the original line took, so its length matters.
Rules:
- Stay within the requested word range. Condense or expand while keeping the key information.
- Translate the whole line. Never truncate it or add commentary.
- Preserve meaning and intent over literal wording.
- Match the tone and register of the original: formal stays formal, casual stays casual, dramatic stays dramatic.
- Use natural spoken language a native speaker would say, including contractions where they fit.
Respond with JSON only: {"translation": "<text>"}`

// BuildPrompt renders the user prompt for one segment.
func BuildPrompt(text string, source, target language.Code, targetWords, low, high int) string {
	var b strings.Builder
	if source != "" {
		fmt.Fprintf(&b, "Translate the following %s text to %s.\n", language.DisplayName(source), language.DisplayName(target))
	} else {
		fmt.Fprintf(&b, "Translate the following text to %s.\n", language.DisplayName(target))
	}
	fmt.Fprintf(&b, "Target word count: %d words (between %d and %d).\n", targetWords, low, high)
	fmt.Fprintf(&b, "Original text: %q\n", strings.TrimSpace(text))
	return b.String()
}
