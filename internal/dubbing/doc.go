// Package dubbing runs a dubbing job end to end.
//
// A job validates and cleans the recognised segments, resolves speakers,
// profiles each speaker from the source recording, assigns voices, then
// translates and synthesizes every segment on a bounded worker pool. Once every
// clip exists the timeline is assembled and written atomically. Voice matching
// happens before any synthesis call, so an unsupported target language fails
// the job without touching the TTS backend.
//
// Component failures degrade inside their own fallback ladders. Only fatal
// conditions (no voice for the language, an unavailable catalog, invalid
// input, cancellation, or a failed write) surface as a *JobError naming the
// stage that failed; nothing is written to the output path in that case.
package dubbing
