//go:build !js && !wasip1

package link

import "net"

// maxHardwareAddrLen is the longest hardware address that fits in a uint64.
const maxHardwareAddrLen = 8

// DefaultIDProvider returns the provider used when none is injected.
// On this platform it reads the first non-loopback hardware address.
func DefaultIDProvider() IDProvider {
	return HardwareIDFunc(MACAddressID)
}

// MACAddressID returns the hardware address of the lowest-indexed
// non-loopback interface as a number, e.g. 3c:71:bf:4a:00:12 -> 0x3c71bf4a0012.
func MACAddressID() (uint64, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if n := len(iface.HardwareAddr); n == 0 || n > maxHardwareAddrLen {
			continue
		}

		var id uint64
		for _, b := range iface.HardwareAddr {
			id = id<<8 | uint64(b)
		}
		if id != 0 {
			return id, true
		}
	}

	return 0, false
}
