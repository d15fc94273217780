package link

import "sync"

// ConnectHandler is called after the MQTT session is established and the
// online status has been published.
type ConnectHandler func(sessionPresent bool)

// DisconnectHandler is called when the MQTT session ends or a connect
// attempt fails. reason describes why (may be nil).
type DisconnectHandler func(reason error)

// MessageHandler is called for every inbound message, whatever its topic.
type MessageHandler func(msg Message)

// DeviceIDChangedHandler is called from UpdateDeviceID after the identifier
// has been swapped and before the new online status is published.
type DeviceIDChangedHandler func(mqttConnected bool, oldID, newID string)

// Message is an inbound MQTT message.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       byte
	Retained  bool
	Duplicate bool
}

// handlerList is an append-only, ordered list of handlers.
// Dispatch iterates a snapshot so handlers may register more handlers
// without deadlocking; those take effect from the next event.
type handlerList[H any] struct {
	mu       sync.RWMutex
	handlers []H
}

func (l *handlerList[H]) add(h H) {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
}

func (l *handlerList[H]) snapshot() []H {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handlers[:len(l.handlers):len(l.handlers)]
}

func (l *handlerList[H]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers)
}

// SubscribeToConnect registers a handler for MQTT connect events.
// Handlers run in registration order. Nil handlers are ignored.
func (m *Manager) SubscribeToConnect(handler ConnectHandler) {
	if handler != nil {
		m.connectHandlers.add(handler)
	}
}

// SubscribeToDisconnect registers a handler for MQTT disconnect events.
func (m *Manager) SubscribeToDisconnect(handler DisconnectHandler) {
	if handler != nil {
		m.disconnectHandlers.add(handler)
	}
}

// SubscribeToMessage registers a handler for inbound messages.
func (m *Manager) SubscribeToMessage(handler MessageHandler) {
	if handler != nil {
		m.messageHandlers.add(handler)
	}
}

// SubscribeToDeviceIDChanged registers a handler for device id changes.
func (m *Manager) SubscribeToDeviceIDChanged(handler DeviceIDChangedHandler) {
	if handler != nil {
		m.deviceIDHandlers.add(handler)
	}
}

func (m *Manager) fireConnect(sessionPresent bool) {
	for _, h := range m.connectHandlers.snapshot() {
		h(sessionPresent)
	}
}

func (m *Manager) fireDisconnect(reason error) {
	for _, h := range m.disconnectHandlers.snapshot() {
		h(reason)
	}
}

func (m *Manager) fireMessage(msg Message) {
	for _, h := range m.messageHandlers.snapshot() {
		h(msg)
	}
}

func (m *Manager) fireDeviceIDChanged(connected bool, oldID, newID string) {
	for _, h := range m.deviceIDHandlers.snapshot() {
		h(connected, oldID, newID)
	}
}
