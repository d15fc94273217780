package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nerrad567/megunolink-mqtt/internal/command"
)

// deviceIdentity is the part of link.Manager the built-in commands use.
type deviceIdentity interface {
	DeviceID() string
	UpdateDeviceID(newID string)
}

// registerBuiltins adds the commands every device answers:
//
//	Ping            -> Pong
//	DeviceId        -> DeviceId=<id>
//	DeviceId <new>  -> changes the id, replies DeviceId=<new>
//	Uptime          -> Uptime=<seconds>
//	Version         -> Version=<version> (read-only)
func registerBuiltins(table *command.Table, ids deviceIdentity, started time.Time) error {
	if err := table.AddCommand("Ping", func(w io.Writer, _ []string) {
		io.WriteString(w, "Pong\r\n")
	}); err != nil {
		return err
	}

	if err := table.AddCommand("DeviceId", func(w io.Writer, params []string) {
		if len(params) > 0 {
			newID := params[0]
			if strings.ContainsAny(newID, "/+#") {
				fmt.Fprintf(w, "Invalid device id: %s\r\n", newID)
				return
			}
			ids.UpdateDeviceID(newID)
		}
		fmt.Fprintf(w, "DeviceId=%s\r\n", ids.DeviceID())
	}); err != nil {
		return err
	}

	if err := table.AddCommand("Uptime", func(w io.Writer, _ []string) {
		fmt.Fprintf(w, "Uptime=%d\r\n", int64(time.Since(started)/time.Second))
	}); err != nil {
		return err
	}

	return table.AddVariable("Version", func() string { return version }, nil)
}
