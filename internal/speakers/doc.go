// Package speakers resolves recognition segments to speaker identities and
// aggregates the per-speaker acoustic view.
//
// Resolution runs a ladder: the diarization timeline when it has turns, gap
// alternation when the timeline is empty or not configured, and a single
// default speaker when diarization fails. Every segment of a speaker shares
// the speaker's dominant profile, the feature-wise mean of a small sample of
// that speaker's longer segments.
package speakers
