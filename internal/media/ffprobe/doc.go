// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline uses it to confirm a source recording carries audio before
// feature extraction, to read its duration so segment ranges can be bounded,
// and to pick which audio stream of a multi-track container holds the
// source dialogue.
package ffprobe
