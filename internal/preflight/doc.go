// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths that dubber depends on.
//
// The CLI "dubber doctor" command runs RunAll and renders the results. Checks
// for optional backends are marked Optional: a failure there degrades a job
// (plain MT instead of the LLM, silence instead of speech) rather than
// blocking it.
package preflight
