// Package link manages the device side of a MegunoLink MQTT connection.
//
// It owns three things:
//   - The device identity and the topic scheme {root}/{deviceId}/{leaf}
//   - The network/MQTT connection lifecycle, including the retained
//     online/offline status, the last will, and a fixed-delay reconnect
//   - Ordered fan-out of connect, disconnect, message and device-id-changed
//     events to registered handlers
//
// # Topics
//
//	MegunoLink/{deviceId}/status    online/offline, QoS 1, retained
//	MegunoLink/{deviceId}/command   inbound "!"-prefixed commands
//	MegunoLink/{deviceId}/response  command output
//	MegunoLink/{deviceId}/stream    buffered telemetry
//
// # Reconnect
//
// After a disconnect the Manager waits ReconnectDelay (5s by default) and
// tries again, indefinitely, for as long as the network is reported up.
// There is no backoff. Losing the network cancels the pending attempt;
// the next OnNetworkConnected starts a fresh one.
//
// # Usage
//
//	transport := mqtt.New(cfg.MQTT)
//	mgr := link.NewManager(transport, link.Options{RootTopic: "MegunoLink"})
//	transport.SetEvents(mgr)
//
//	mgr.SubscribeToConnect(func(sessionPresent bool) {
//	    log.Info("connected", "topic", mgr.BuildTopic(link.TopicCommand))
//	})
//	mgr.OnNetworkConnected()
package link
