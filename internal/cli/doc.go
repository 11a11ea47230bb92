// Package cli wires together the Cobra command tree for the reconcile binary.
//
// It defines the root command and its subcommands (run, history, watch,
// config, cache, hook, github, version), binds flags, loads configuration,
// runs the reconciliation engine, and maps the outcome to deterministic exit
// codes for CI gating and git hooks.
package cli
