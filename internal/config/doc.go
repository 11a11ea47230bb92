// Package config loads and merges gradlerec configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GRADLEREC_STRATEGY, GRADLEREC_FORMAT, GRADLEREC_FAIL_ON, etc.)
//  3. Config file ($XDG_CONFIG_HOME/gradlerec/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file,
// and [SetField] to update a single key.
package config
