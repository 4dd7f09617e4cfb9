// Package main hosts the turntable CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP API server, processes local
// videos through the same session pipeline the server uses, inspects session
// history and staging, and scaffolds configuration. Configuration resolution
// and logger setup live here so subcommands stay declarative.
//
// Add new behaviour to the internal packages first, then surface it through a
// dedicated command or flag.
package main
