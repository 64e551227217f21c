// Package api implements the status HTTP server for colorbridge.
//
// This package provides:
//   - GET /api/v1/health: liveness of the gateway connection and MQTT
//   - GET /api/v1/status: controller state, queue depths and counters
//   - Middleware stack (request ID, logging, recovery)
//
// The server is read-only. Colour changes only come from chat.
package api
