// Package mqtt provides the MQTT transport for the MegunoLink link.
//
// This package manages:
//   - Connect attempts against a broker with a per-attempt Last Will
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Delivery of connect, disconnect and message events to the link manager
//   - Connection health monitoring
//
// # Architecture
//
// The Client does not reconnect on its own. The link manager owns the
// connection lifecycle and calls Connect whenever the network comes up or
// its reconnect timer fires. Each attempt builds a fresh paho client so the
// will always names the device id current at that moment.
//
//	link.Manager -> mqtt.Client -> paho -> Broker
//	link.Manager <- Events      <- paho
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on a trusted network
//   - Credentials should come from MEGUNOLINK_MQTT_USERNAME/PASSWORD
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetLogger(logger)
//
//	manager := link.NewManager(client, link.Options{})
//	client.SetEvents(manager)
//
//	manager.OnNetworkConnected()
//	defer manager.Close()
package mqtt
