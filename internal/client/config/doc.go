// Package config holds the device client settings. Values are layered:
// defaults, then an optional JSON file, then DAYBOOK_* environment variables.
// Command-line flags are applied on top by the CLI.
package config
