// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and segment indexes
//     for logging.
//   - Structured error markers plus the Wrap helper so failures from any
//     backend classify consistently (see Classify).
//
// Subpackages hold the HTTP clients for the LLM, machine translation, speech
// synthesis, and diarization backends.
package services
