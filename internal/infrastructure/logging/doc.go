// Package logging provides structured logging for the LaCrosse gateway.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - Colored, timestamped console output (github.com/charmbracelet/log)
//   - JSON output for log shippers
//   - Plain text output
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "console"  # console, json, text
//	  output: "stdout"   # stdout, stderr
//
// LACROSSE_LOG_LEVEL overrides the level.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("frame received", "device_id", 12)
//	logger.Error("publish failed", "error", err)
//
// # Security
//
// Never log broker passwords or the InfluxDB token.
package logging
