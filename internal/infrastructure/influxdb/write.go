package influxdb

// Measurement names written by this package. Every point carries a
// device_id tag.
const (
	MeasurementLinkEvents = "link_events"
	MeasurementCommands   = "link_commands"
	MeasurementStream     = "link_stream"
)

// WriteLinkEvent records a connection lifecycle event such as "connect",
// "disconnect" or "device_id_changed". fields may be nil; a count=1 field
// is always added so events can be summed.
//
//	client.WriteLinkEvent("a4cf12", "connect", map[string]interface{}{"session_present": false})
func (c *Client) WriteLinkEvent(deviceID, event string, fields map[string]interface{}) {
	all := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		all[k] = v
	}
	all["count"] = 1

	c.write(MeasurementLinkEvents, map[string]string{
		"device_id": deviceID,
		"event":     event,
	}, all)
}

// WriteCommand records one dispatched command. name should be the command
// word only, without parameters, to keep tag cardinality low.
func (c *Client) WriteCommand(deviceID, name string, responseBytes int) {
	c.write(MeasurementCommands, map[string]string{
		"device_id": deviceID,
		"command":   name,
	}, map[string]interface{}{
		"response_bytes": responseBytes,
	})
}

// WriteStreamFlush records one stream flush. published is false when the
// buffer was dropped.
func (c *Client) WriteStreamFlush(deviceID string, bytes int, published bool) {
	c.write(MeasurementStream, map[string]string{
		"device_id": deviceID,
	}, map[string]interface{}{
		"bytes":     bytes,
		"published": published,
	})
}

// WritePoint writes a point with caller-chosen measurement, tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.write(measurement, tags, fields)
}
