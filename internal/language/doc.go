// Package language normalizes language identifiers into a typed Code.
//
// Every place that accepts a language (CLI flags, voice catalogs, translation
// prompts) funnels through Parse so catalog lookups compare canonical codes
// instead of raw strings. Display names feed the translation prompts.
package language
