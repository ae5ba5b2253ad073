// Package translate converts segment text into the target language under a
// word budget derived from the segment's duration.
//
// Tiers run in order until one produces an acceptable result: the generative
// LLM tier (budget, tolerance band and tone instructions), plain machine
// translation, and finally pass-through of the source text. Every tier's
// output is cleaned and checked by quality predicates; a rejected result
// counts as a failure and moves to the next tier. Translate never returns an
// empty string for non-empty input.
package translate
