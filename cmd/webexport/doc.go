// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the webexport command line.
//
// The root command runs one export: it resolves settings, prints the engine
// invocation, runs "<engine> buildx build" and exits with the engine's exit
// code. Subcommands publish a local dist directory (copy-dist) and inspect or
// create config files (config).
package cmd
