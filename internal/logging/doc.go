// Package logging provides structured logging for the cointhing daemon and CLI.
//
// It wraps a package-level zap logger with a few helpers used across the
// settings store, the stats registry and the config link.
//
// # Log Levels
//
//   - Debug: settings traces, file events, raw link payloads
//   - Info: link connections, applied settings, time sync
//   - Warn: corrupt or unreadable files, rejected payloads
//   - Error: startup failures
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and COINTHING_LOG_LEVEL is unset the logger is a
// zap Nop logger, so CLI output stays clean.
package logging
