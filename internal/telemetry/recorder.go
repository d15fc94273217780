// Package telemetry records link activity as time-series points.
//
// A Recorder listens to the link manager's lifecycle events and exposes
// hook methods for the command channel and stream publisher:
//
//	rec := telemetry.NewRecorder(manager, influxClient)
//	channel.SetOnDispatch(rec.RecordCommand)
//	publisher.SetOnFlush(rec.RecordStreamFlush)
package telemetry

import (
	"strings"

	"github.com/nerrad567/megunolink-mqtt/internal/link"
)

// Event names written to the link events measurement.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventDeviceIDChanged = "device_id_changed"
)

// Sink receives telemetry. *influxdb.Client implements it.
type Sink interface {
	WriteLinkEvent(deviceID, event string, fields map[string]interface{})
	WriteCommand(deviceID, name string, responseBytes int)
	WriteStreamFlush(deviceID string, bytes int, published bool)
}

// Source is the part of link.Manager the recorder listens to.
type Source interface {
	DeviceID() string
	SubscribeToConnect(handler link.ConnectHandler)
	SubscribeToDisconnect(handler link.DisconnectHandler)
	SubscribeToDeviceIDChanged(handler link.DeviceIDChangedHandler)
}

// Recorder translates link activity into Sink writes.
type Recorder struct {
	source Source
	sink   Sink
}

// NewRecorder creates a Recorder and registers it with source.
func NewRecorder(source Source, sink Sink) *Recorder {
	r := &Recorder{source: source, sink: sink}

	source.SubscribeToConnect(r.onConnect)
	source.SubscribeToDisconnect(r.onDisconnect)
	source.SubscribeToDeviceIDChanged(r.onDeviceIDChanged)

	return r
}

func (r *Recorder) onConnect(sessionPresent bool) {
	r.sink.WriteLinkEvent(r.source.DeviceID(), EventConnect, map[string]interface{}{
		"session_present": sessionPresent,
	})
}

func (r *Recorder) onDisconnect(reason error) {
	var fields map[string]interface{}
	if reason != nil {
		fields = map[string]interface{}{"reason": reason.Error()}
	}
	r.sink.WriteLinkEvent(r.source.DeviceID(), EventDisconnect, fields)
}

func (r *Recorder) onDeviceIDChanged(mqttConnected bool, oldID, newID string) {
	r.sink.WriteLinkEvent(newID, EventDeviceIDChanged, map[string]interface{}{
		"old_device_id":  oldID,
		"mqtt_connected": mqttConnected,
	})
}

// RecordCommand records a dispatched command. Only the command name (the
// text before the first space or '=') is kept.
func (r *Recorder) RecordCommand(command string, responseLen int) {
	r.sink.WriteCommand(r.source.DeviceID(), commandName(command), responseLen)
}

// RecordStreamFlush records a stream flush.
func (r *Recorder) RecordStreamFlush(n int, published bool) {
	r.sink.WriteStreamFlush(r.source.DeviceID(), n, published)
}

func commandName(command string) string {
	command = strings.TrimSpace(command)
	if i := strings.IndexAny(command, " \t="); i >= 0 {
		command = command[:i]
	}
	return strings.TrimSuffix(command, "?")
}
