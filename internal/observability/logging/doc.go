// Package logging provides structured logging utilities with context propagation.
//
// Loggers are built from the log section of the configuration:
//
//	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
//	slog.SetDefault(logger)
//
// Records logged with a context (slog.InfoContext and friends) carry the
// request_id set by the request ID middleware and the trace_id of the active span.
package logging
