// Package logging provides opt-in file-based logging with rotation for mnemo.
// Setup writes JSON logs to a size-rotated file, by default
// ~/.mnemo/logs/server.log, optionally mirrored to stderr.
//
// The mnemo CLI does not call this package; its commands log through the
// standard slog default handler to stderr.
package logging
