// Package logging provides the slog construction helpers shared by the CLI
// and the background worker: a single-line console handler for interactive
// use, a JSON handler for log shipping, standardized field keys, and context
// helpers that stamp job/stage/category onto every record emitted while a
// pipeline runs.
package logging
