// Package synth renders translated segments to audio and corrects their
// timing.
//
// Synthesized clips are cached by a content key derived from the voice and the
// text, before any speed change, so the cache can be shared across segments
// and jobs. Speed correction only ever speeds a clip up, by at most the
// configured adjustment; short clips stay at natural speed and the timeline
// pads them with silence. Any backend failure yields a short silent clip
// instead of an error so assembly always has input; only context cancellation
// is returned to the caller.
//
// Cache implementations: FileCache (content-addressed WAV files with an
// optional SQLite index and flock-guarded maintenance), RedisCache (TTL-bound,
// shared between hosts) and NoopCache.
package synth
