package api

import (
	"github.com/nerrad567/megunolink-mqtt/internal/link"
)

// Event channels a WebSocket client can subscribe to.
const (
	ChannelLink     = "link"
	ChannelCommands = "commands"
	ChannelStream   = "stream"
)

// Link event names sent on ChannelLink.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventDeviceIDChanged = "device_id_changed"
)

// EventSource is the part of link.Manager the hub listens to.
type EventSource interface {
	SubscribeToConnect(handler link.ConnectHandler)
	SubscribeToDisconnect(handler link.DisconnectHandler)
	SubscribeToDeviceIDChanged(handler link.DeviceIDChangedHandler)
}

// BindLink relays connection and device-id events from src to
// subscribers of ChannelLink.
func (h *Hub) BindLink(src EventSource) {
	src.SubscribeToConnect(func(sessionPresent bool) {
		h.Broadcast(ChannelLink, map[string]any{
			"event":           EventConnect,
			"session_present": sessionPresent,
		})
	})
	src.SubscribeToDisconnect(func(reason error) {
		payload := map[string]any{"event": EventDisconnect}
		if reason != nil {
			payload["reason"] = reason.Error()
		}
		h.Broadcast(ChannelLink, payload)
	})
	src.SubscribeToDeviceIDChanged(func(mqttConnected bool, oldID, newID string) {
		h.Broadcast(ChannelLink, map[string]any{
			"event":          EventDeviceIDChanged,
			"old_device_id":  oldID,
			"device_id":      newID,
			"mqtt_connected": mqttConnected,
		})
	})
}

// RecordCommand matches the command channel's dispatch hook.
func (h *Hub) RecordCommand(command string, responseLen int) {
	h.Broadcast(ChannelCommands, map[string]any{
		"command":        command,
		"response_bytes": responseLen,
	})
}

// RecordStreamFlush matches the stream publisher's flush hook.
func (h *Hub) RecordStreamFlush(n int, published bool) {
	h.Broadcast(ChannelStream, map[string]any{
		"bytes":     n,
		"published": published,
	})
}
