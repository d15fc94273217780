package netwatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNoInterface is returned by InterfaceProbe when no usable interface is up.
var ErrNoInterface = errors.New("netwatch: no active network interface")

// Probe checks whether the network is usable. A nil error means up.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// AlwaysUp is a Probe that never fails.
var AlwaysUp Probe = ProbeFunc(func(context.Context) error { return nil })

// InterfaceProbe reports up when at least one interface is up, is not a
// loopback and has an address assigned.
func InterfaceProbe() Probe {
	return ProbeFunc(func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		ifaces, err := net.Interfaces()
		if err != nil {
			return fmt.Errorf("listing interfaces: %w", err)
		}

		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil || len(addrs) == 0 {
				continue
			}
			return nil
		}

		return ErrNoInterface
	})
}

// DialProbe reports up when a TCP connection to addr can be opened within
// timeout. The connection is closed immediately.
func DialProbe(addr string, timeout time.Duration) Probe {
	return ProbeFunc(func(ctx context.Context) error {
		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dialing %s: %w", addr, err)
		}
		return conn.Close()
	})
}
