// Package config loads, normalizes, and validates the audioqc TOML
// configuration. Loading never requires a config file to exist: defaults
// cover every field, and a missing file simply yields the defaults.
package config
