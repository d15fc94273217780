package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
)

// Events receives connection outcomes and inbound messages.
// link.Manager implements it.
type Events interface {
	HandleConnect(sessionPresent bool)
	HandleDisconnect(reason error)
	HandleMessage(topic string, payload []byte, qos byte, retained, duplicate bool)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client adapts paho.mqtt.golang to the link manager's transport contract.
//
// Each Connect builds a fresh paho client carrying the most recent will,
// starts the attempt and returns. The outcome, later connection loss and
// every inbound message are reported through Events.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Publish, Subscribe and Unsubscribe never wait for the broker, so they
//     may be called from inside Events callbacks.
type Client struct {
	cfg      config.MQTTConfig
	clientID string

	// mu guards the paho client, the pending will and the attempt counter.
	mu      sync.Mutex
	client  pahomqtt.Client
	will    *will
	attempt uint64
	closed  bool

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	events   Events
	eventsMu sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Client for cfg. Nothing is dialled until Connect.
// An empty client id is replaced by a generated "megunolink-xxxxxxxx".
func New(cfg config.MQTTConfig) *Client {
	clientID := cfg.Broker.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}
	return &Client{cfg: cfg, clientID: clientID}
}

// ClientID returns the MQTT client identifier used for every attempt.
func (c *Client) ClientID() string {
	return c.clientID
}

// SetEvents sets the receiver of connection events and messages.
// It must be set before Connect.
func (c *Client) SetEvents(events Events) {
	c.eventsMu.Lock()
	c.events = events
	c.eventsMu.Unlock()
}

func (c *Client) getEvents() Events {
	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()
	return c.events
}

// SetWill sets the Last Will and Testament used by the next Connect.
func (c *Client) SetWill(topic string, payload []byte, qos byte, retained bool) {
	c.mu.Lock()
	c.will = &will{
		topic:    topic,
		payload:  bytes.Clone(payload),
		qos:      qos,
		retained: retained,
	}
	c.mu.Unlock()
}

// Connect starts a connection attempt and returns without waiting.
//
// A session that is still connected is kept and no event is reported.
// Otherwise any previous paho client is disconnected first. When the broker
// accepts, HandleConnect receives the CONNACK session-present flag. When
// the attempt fails or times out, HandleDisconnect receives an error
// wrapping ErrConnectionFailed or ErrTimeout.
//
// Returns:
//   - error: ErrClosed after Close; nil otherwise
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.sessionUpLocked() {
		c.mu.Unlock()
		return nil
	}

	previous := c.client
	c.attempt++
	attempt := c.attempt

	opts := buildClientOptions(c.cfg, c.clientID, c.will)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(attempt, err)
	})
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.handleMessage(msg)
	})

	client := pahomqtt.NewClient(opts)
	c.client = client
	c.mu.Unlock()

	c.setConnected(false)
	if previous != nil && previous.IsConnectionOpen() {
		previous.Disconnect(0)
	}

	token := client.Connect()
	go c.awaitConnect(attempt, client, token)

	return nil
}

// awaitConnect waits for the outcome of one connect attempt.
func (c *Client) awaitConnect(attempt uint64, client pahomqtt.Client, token pahomqtt.Token) {
	var err error
	switch {
	case !token.WaitTimeout(defaultConnectTimeout):
		err = fmt.Errorf("%w: connect timeout after %v", ErrTimeout, defaultConnectTimeout)
		client.Disconnect(0)
	case token.Error() != nil:
		err = fmt.Errorf("%w: %w", ErrConnectionFailed, token.Error())
	}

	if !c.isCurrent(attempt) {
		if err == nil {
			client.Disconnect(0)
		}
		return
	}

	events := c.getEvents()

	if err != nil {
		if events != nil {
			events.HandleDisconnect(err)
		}
		return
	}

	sessionPresent := false
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		sessionPresent = ct.SessionPresent()
	}

	c.setConnected(true)
	if events != nil {
		events.HandleConnect(sessionPresent)
	}
}

// handleConnectionLost is called by paho when an established session drops.
func (c *Client) handleConnectionLost(attempt uint64, err error) {
	if !c.isCurrent(attempt) {
		return
	}

	c.setConnected(false)

	if events := c.getEvents(); events != nil {
		events.HandleDisconnect(fmt.Errorf("%w: %w", ErrConnectionLost, err))
	}
}

// handleMessage forwards an inbound message with panic recovery.
func (c *Client) handleMessage(msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}
	}()

	events := c.getEvents()
	if events == nil {
		return
	}
	events.HandleMessage(msg.Topic(), msg.Payload(), msg.Qos(), msg.Retained(), msg.Duplicate())
}

// sessionUpLocked reports whether the current attempt holds a live
// session. c.mu must be held.
func (c *Client) sessionUpLocked() bool {
	c.connMu.RLock()
	connected := c.connected
	c.connMu.RUnlock()
	return connected && c.client != nil && c.client.IsConnectionOpen()
}

func (c *Client) isCurrent(attempt uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && attempt == c.attempt
}

func (c *Client) setConnected(connected bool) {
	c.connMu.Lock()
	c.connected = connected
	c.connMu.Unlock()
}

// currentClient returns the paho client if connected.
func (c *Client) currentClient() (pahomqtt.Client, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// Close disconnects from the broker and stops further attempts.
//
// Pending publishes get a short quiesce period. Events are not notified
// of this disconnect.
//
// Returns:
//   - error: nil (disconnecting an idle client is not an error)
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	client := c.client
	c.mu.Unlock()

	c.setConnected(false)

	if client != nil && client.IsConnectionOpen() {
		client.Disconnect(defaultDisconnectQuiesce)
	}

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	connected := c.connected
	c.connMu.RUnlock()
	if !connected {
		return false
	}

	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	return client != nil && client.IsConnectionOpen()
}

// SetLogger sets a logger for error and panic logging.
// If not set, async failures are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// watchToken logs the outcome of an acknowledged operation in the
// background so callers never block on the broker.
func (c *Client) watchToken(token pahomqtt.Token, sentinel error, topic string) {
	go func() {
		var err error
		if !token.WaitTimeout(defaultOperationTimeout) {
			err = fmt.Errorf("%w: timeout after %v", sentinel, defaultOperationTimeout)
		} else if token.Error() != nil {
			err = fmt.Errorf("%w: %w", sentinel, token.Error())
		}
		if err == nil {
			return
		}
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT operation failed", "topic", topic, "error", err)
		}
	}()
}
