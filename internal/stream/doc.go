// Package stream buffers MegunoLink telemetry and publishes it to
// {root}/{deviceId}/stream.
//
// Callers write arbitrary bytes (usually MegunoLink message text such as
// "{TIMEPLOT|DATA|Temperature|T|21.5}") and call Flush to send everything
// buffered as one MQTT message. When the session is down the buffered data
// is discarded, so a stale backlog is never sent after a reconnect.
//
// Usage:
//
//	pub := stream.NewPublisher(manager, logger)
//	fmt.Fprintf(pub, "{TIMEPLOT|DATA|T|T|%.1f}", temp)
//	if err := pub.Flush(); err != nil {
//	    logger.Warn("stream flush failed", "error", err)
//	}
//
// For daemons, Run flushes on a fixed interval until the context ends.
package stream
