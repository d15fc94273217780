package link

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultReconnectDelay is the fixed wait between a disconnect and the
// next connect attempt while the network is up.
const DefaultReconnectDelay = 5 * time.Second

// statusQoS is used for the retained online/offline status and the will.
const statusQoS = 1

// Transport is the MQTT client driven by the Manager.
//
// Connect starts an attempt and returns without waiting for the broker;
// the outcome must be reported back through HandleConnect or
// HandleDisconnect. SetWill applies to the next Connect call.
type Transport interface {
	SetWill(topic string, payload []byte, qos byte, retained bool)
	Connect() error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error
	Close() error
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	// RootTopic is the first topic segment. Default: DefaultRootTopic
	RootTopic string

	// DeviceID presets the identifier. Empty means ask IDProvider on the
	// first connect attempt.
	DeviceID string

	// ReconnectDelay is the wait before reconnecting. Default: DefaultReconnectDelay
	ReconnectDelay time.Duration

	// IDProvider supplies the identifier when DeviceID is empty.
	// Default: DefaultIDProvider()
	IDProvider IDProvider

	// Ticker schedules the reconnect attempt. Default: NewTicker()
	Ticker Ticker

	// Logger receives lifecycle logging. Default: discard
	Logger Logger
}

// Manager owns the device identity and the network/MQTT connection flags,
// drives connect attempts on a Transport, and fans connection events out to
// registered handlers.
//
// Lifecycle:
//
//	Idle -> NetworkUp -> MqttConnecting -> MqttConnected
//	MqttConnected -> MqttConnecting   (disconnect while network up)
//	any -> Idle                       (network lost)
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Handlers run on the goroutine that delivered the event, in
//     registration order, with no Manager lock held. A handler may call
//     back into the Manager.
type Manager struct {
	transport      Transport
	ticker         Ticker
	ids            IDProvider
	rootTopic      string
	reconnectDelay time.Duration
	logger         Logger

	mu               sync.RWMutex
	deviceID         string
	networkConnected bool
	mqttConnected    bool

	connectHandlers    handlerList[ConnectHandler]
	disconnectHandlers handlerList[DisconnectHandler]
	messageHandlers    handlerList[MessageHandler]
	deviceIDHandlers   handlerList[DeviceIDChangedHandler]
}

// NewManager creates a Manager driving transport.
//
// The transport must deliver its events to the returned Manager's
// HandleConnect, HandleDisconnect and HandleMessage methods.
func NewManager(transport Transport, opts Options) *Manager {
	m := &Manager{
		transport:      transport,
		ticker:         opts.Ticker,
		ids:            opts.IDProvider,
		rootTopic:      opts.RootTopic,
		reconnectDelay: opts.ReconnectDelay,
		logger:         opts.Logger,
		deviceID:       opts.DeviceID,
	}

	if m.rootTopic == "" {
		m.rootTopic = DefaultRootTopic
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	if m.ids == nil {
		m.ids = DefaultIDProvider()
	}
	if m.ticker == nil {
		m.ticker = NewTicker()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	return m
}

// RootTopic returns the immutable root topic.
func (m *Manager) RootTopic() string {
	return m.rootTopic
}

// DeviceID returns the current device identifier. It is empty until the
// first connect attempt unless preset through Options.
func (m *Manager) DeviceID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deviceID
}

// IsMqttConnected reports whether the MQTT session is up.
func (m *Manager) IsMqttConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mqttConnected
}

// IsNetworkConnected reports whether the network layer is up.
func (m *Manager) IsNetworkConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.networkConnected
}

// BuildTopic returns {root}/{current device id}/{leaf}.
func (m *Manager) BuildTopic(leaf string) string {
	return BuildTopic(m.rootTopic, m.DeviceID(), leaf)
}

// BuildTopicFor returns {root}/{deviceID}/{leaf}.
func (m *Manager) BuildTopicFor(deviceID, leaf string) string {
	return BuildTopic(m.rootTopic, deviceID, leaf)
}

// BuildStreamTopic returns the stream topic for the current device id.
func (m *Manager) BuildStreamTopic() string {
	return m.BuildTopic(TopicStream)
}

// OnNetworkConnected records that the network is up and starts an MQTT
// connect attempt. A session that is still up is left alone; if it died
// during the outage the transport reports the disconnect and the normal
// reconnect path takes over.
func (m *Manager) OnNetworkConnected() {
	m.mu.Lock()
	m.networkConnected = true
	m.mu.Unlock()

	m.logger.Info("network connected")
	m.startConnection()
}

// OnNetworkConnectionLost records that the network is down and cancels any
// pending reconnect.
func (m *Manager) OnNetworkConnectionLost() {
	m.mu.Lock()
	m.networkConnected = false
	m.mu.Unlock()

	m.ticker.Detach()
	m.logger.Warn("network connection lost")
}

// startConnection generates the device id if needed, sets the will on the
// status topic and asks the transport to connect. It does nothing while
// the MQTT session is up.
func (m *Manager) startConnection() {
	m.mu.Lock()
	if m.mqttConnected {
		m.mu.Unlock()
		return
	}
	if m.deviceID == "" {
		m.deviceID = m.ids.DeviceID()
	}
	deviceID := m.deviceID
	m.mu.Unlock()

	m.transport.SetWill(m.BuildTopicFor(deviceID, TopicStatus), []byte(StatusOffline), statusQoS, true)

	if err := m.transport.Connect(); err != nil {
		m.logger.Error("mqtt connect attempt failed to start", "device_id", deviceID, "error", err)
		m.scheduleReconnect()
	}
}

// scheduleReconnect arms the one-shot reconnect timer if the network is up.
func (m *Manager) scheduleReconnect() {
	if !m.IsNetworkConnected() {
		return
	}
	m.ticker.Once(m.reconnectDelay, m.reconnect)
}

// reconnect is the timer callback.
func (m *Manager) reconnect() {
	// The network may have dropped between the timer firing and Detach.
	if !m.IsNetworkConnected() {
		return
	}
	m.startConnection()
}

// HandleConnect is called by the transport when the MQTT session is up.
// The retained online status is published before any connect handler runs.
func (m *Manager) HandleConnect(sessionPresent bool) {
	m.mu.Lock()
	m.mqttConnected = true
	deviceID := m.deviceID
	m.mu.Unlock()

	m.logger.Info("mqtt connected", "device_id", deviceID, "session_present", sessionPresent)

	m.publishStatus(deviceID, StatusOnline)
	m.fireConnect(sessionPresent)
}

// HandleDisconnect is called by the transport when the session ends or a
// connect attempt fails. A reconnect is scheduled only while the network is
// up; otherwise network recovery owns the next attempt.
func (m *Manager) HandleDisconnect(reason error) {
	m.mu.Lock()
	m.mqttConnected = false
	m.mu.Unlock()

	m.logger.Warn("mqtt disconnected", "error", reason)

	m.fireDisconnect(reason)
	m.scheduleReconnect()
}

// HandleMessage is called by the transport for every inbound message.
func (m *Manager) HandleMessage(topic string, payload []byte, qos byte, retained, duplicate bool) {
	m.fireMessage(Message{
		Topic:     topic,
		Payload:   payload,
		QoS:       qos,
		Retained:  retained,
		Duplicate: duplicate,
	})
}

// UpdateDeviceID replaces the device identifier.
//
// Order:
//  1. offline is published under the old id's status topic
//  2. the id is swapped and the will is re-armed on the new status topic
//  3. device-id-changed handlers run with (connected, old, new)
//  4. online is published under the new id's status topic
//
// Status publishes are skipped while MQTT is disconnected. MQTT cannot
// change the will of a live session, so the broker keeps the old id's will
// until the next connect: an unclean drop before then marks the old topic
// offline and leaves the new one online until the reconnect.
func (m *Manager) UpdateDeviceID(newID string) {
	m.mu.RLock()
	oldID := m.deviceID
	m.mu.RUnlock()

	m.publishStatus(oldID, StatusOffline)

	m.mu.Lock()
	m.deviceID = newID
	connected := m.mqttConnected
	m.mu.Unlock()

	m.transport.SetWill(m.BuildTopicFor(newID, TopicStatus), []byte(StatusOffline), statusQoS, true)

	m.logger.Info("device id changed", "old_device_id", oldID, "device_id", newID)

	m.fireDeviceIDChanged(connected, oldID, newID)

	m.publishStatus(newID, StatusOnline)
}

// LogDeviceID writes the current device identifier to the log.
func (m *Manager) LogDeviceID() {
	m.logger.Info("device id", "device_id", m.DeviceID())
}

// publishStatus publishes a retained status for deviceID when connected.
func (m *Manager) publishStatus(deviceID, status string) {
	if deviceID == "" || !m.IsMqttConnected() {
		return
	}

	topic := m.BuildTopicFor(deviceID, TopicStatus)
	if err := m.transport.Publish(topic, []byte(status), statusQoS, true); err != nil {
		m.logger.Warn("status publish failed", "topic", topic, "status", status, "error", err)
	}
}

// Publish forwards to the transport.
func (m *Manager) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return m.transport.Publish(topic, payload, qos, retained)
}

// Subscribe forwards to the transport.
func (m *Manager) Subscribe(topic string, qos byte) error {
	return m.transport.Subscribe(topic, qos)
}

// Unsubscribe forwards to the transport.
func (m *Manager) Unsubscribe(topic string) error {
	return m.transport.Unsubscribe(topic)
}

// Close publishes a graceful offline status and closes the transport.
// No reconnect is attempted afterwards until OnNetworkConnected is called.
func (m *Manager) Close() error {
	m.publishStatus(m.DeviceID(), StatusOffline)

	m.mu.Lock()
	m.networkConnected = false
	m.mqttConnected = false
	m.mu.Unlock()

	m.ticker.Detach()
	return m.transport.Close()
}
