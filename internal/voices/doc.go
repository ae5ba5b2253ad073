// Package voices holds the synthesis voice catalog and matches speakers to
// voices.
//
// A Catalog is validated once when built: every descriptor needs a unique ID
// and parseable languages, and a typed language lookup table is derived from
// it. Matching scores each eligible voice against a speaker's dominant
// acoustic profile and assigns voices greedily in speaker order, avoiding
// reuse until the eligible voices run out.
package voices
