// Package main hosts the autocaption CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into workflow jobs: key
// frame extraction, slide description, caption correction, threshold sweeps,
// clip trimming, catalog history, slide search, and environment checks. It
// centralizes configuration resolution, logger construction, and catalog
// access so subcommands only parse flags and render results.
//
// Keep this package thin: new behaviour belongs in the internal packages and
// is surfaced here through a command or a flag.
package main
