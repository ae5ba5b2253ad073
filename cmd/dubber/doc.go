// Package main hosts the dubber CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the dubbing
// runtime from it, and renders results as tables or JSON. Cache maintenance,
// voice catalog inspection, configuration scaffolding, and dependency checks
// live beside the dub command so operators never need a second tool.
package main
