// Package config loads, normalizes, and validates plantscope configuration.
//
// Settings come from a TOML file (default ~/.config/plantscope/config.toml or
// ./plantscope.toml), with credentials optionally supplied through the
// environment or a local .env file. Environment values only fill fields the
// file left blank. Load returns a fully expanded Config; Validate checks
// formats but never requires credentials, since debug mode runs without them.
package config
