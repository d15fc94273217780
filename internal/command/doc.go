// Package command implements the device side of the MegunoLink command
// channel over MQTT.
//
// A Channel subscribes to {root}/{deviceId}/command at QoS 2 whenever the
// MQTT session comes up. Each inbound payload is checked for the command
// marker, stripped of its line ending and handed to a Dispatcher together
// with a bounded ResponseBuffer. Whatever the dispatcher writes is published
// verbatim to {root}/{deviceId}/response.
//
// Payload format:
//
//	!Name params...\r\n
//
// Messages without the leading '!' are ignored without a reply.
//
// Table is the Dispatcher used by the daemon. It maps names to commands and
// variables:
//
//	Ping          -> runs the Ping command
//	Interval      -> Interval=500\r\n
//	Interval?     -> Interval=500\r\n
//	Interval=250  -> sets Interval, replies Interval=250\r\n
//
// Usage:
//
//	table := command.NewTable()
//	_ = table.AddCommand("Ping", func(w io.Writer, _ []string) {
//	    io.WriteString(w, "Pong\r\n")
//	})
//	ch := command.NewChannel(manager, table, logger)
//	_ = ch
package command
