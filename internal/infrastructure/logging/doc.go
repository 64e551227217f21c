// Package logging provides structured logging for colorbridge.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same default fields (service, version) and level filter.
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
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("colour applied", "command_id", id, "rgbw", rgbw)
//
// Attributes named token, password or secret are redacted by the handler;
// still avoid logging credentials under other keys.
package logging
