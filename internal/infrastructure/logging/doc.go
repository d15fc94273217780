// Package logging provides structured logging for the MegunoLink MQTT link.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the daemon and its components.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("mqtt connected", "device_id", id)
//
// Never log broker passwords or InfluxDB tokens.
package logging
