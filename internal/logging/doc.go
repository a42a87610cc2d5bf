// Package logging builds the application slog.Logger and provides attribute
// helpers shared across packages. Two handler formats exist: a compact
// console handler for interactive use and a JSON handler for machine
// consumption.
package logging
