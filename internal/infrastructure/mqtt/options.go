package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for a connect attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultOperationTimeout bounds publish/subscribe acknowledgement waits.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is used when the configured keep-alive is zero.
	defaultKeepAlive = 60 * time.Second

	// clientIDPrefix prefixes generated client identifiers.
	clientIDPrefix = "megunolink-"

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// will is the Last Will and Testament applied to the next connect attempt.
type will struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// generateClientID returns a client identifier unique to this process.
func generateClientID() string {
	return clientIDPrefix + uuid.NewString()[:8]
}

// brokerURL returns the paho broker URL for cfg.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions creates paho MQTT options from config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Clean session and keep-alive
//   - TLS configuration (if enabled)
//
// Paho's own reconnect logic is disabled: the link manager decides when
// to reconnect so that the will always names the current device id.
func buildClientOptions(cfg config.MQTTConfig, clientID string, w *will) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)

	// Authentication (if credentials provided)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(cfg.CleanSession)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := defaultKeepAlive
	if cfg.KeepAlive > 0 {
		keepAlive = time.Duration(cfg.KeepAlive) * time.Second
	}
	opts.SetKeepAlive(keepAlive)

	// Inbound messages are delivered in order on a single goroutine.
	opts.SetOrderMatters(true)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	if w != nil {
		opts.SetBinaryWill(w.topic, w.payload, w.qos, w.retained)
	}

	return opts
}
