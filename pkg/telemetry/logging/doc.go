// Package logging configures the process-wide structured logger.
//
// Switchboard logs through log/slog. This package maps the telemetry
// configuration onto an slog handler (json or text, minimum level, optional
// source locations, optional rotating file output) and installs it as the
// default logger. The level can be changed at runtime, which is how the
// configuration watcher applies live log-level edits.
package logging
