// Package config loads, normalizes, and validates dubber configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and ELEVENLABS_API_KEY. The Config type centralizes every
// knob the pipeline and CLI need so backend credentials, timing constants, and
// cache settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enums, and clear validation errors.
package config
