// Package influxdb provides InfluxDB connectivity for the MegunoLink MQTT link.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, link-specific point writers and health monitoring.
//
// # Purpose
//
// This package records link telemetry:
//   - Connection lifecycle events (link_events)
//   - Dispatched commands (link_commands)
//   - Stream flushes (link_stream)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "megunolink",
//	    Bucket:  "link",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteLinkEvent("a4cf12", "connect", nil)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
