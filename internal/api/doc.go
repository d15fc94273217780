// Package api provides the local HTTP control API and WebSocket event feed
// for a MegunoLink MQTT device.
//
// It exposes the link state, lets a local client run a command through the
// same path as an MQTT command message, and relays link events to
// WebSocket subscribers.
//
// Endpoints:
//
//	GET  /api/v1/health    liveness and version
//	GET  /api/v1/status    device id, topics and connection flags
//	POST /api/v1/commands  {"command": "Ping"} -> {"response": "Pong\r\n"}
//	GET  /api/v1/ws        WebSocket event feed
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
