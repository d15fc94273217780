package link

import "strconv"

// FallbackDeviceID is used when no hardware identifier is available.
const FallbackDeviceID = "default"

// IDProvider supplies a device identifier the first time one is needed.
type IDProvider interface {
	DeviceID() string
}

// StaticID is an IDProvider that always returns the same identifier.
type StaticID string

// DeviceID implements IDProvider.
func (s StaticID) DeviceID() string {
	return string(s)
}

// HardwareIDFunc reads a numeric hardware identifier. ok is false when the
// platform has none, in which case FallbackDeviceID is used.
type HardwareIDFunc func() (id uint64, ok bool)

// DeviceID implements IDProvider by formatting the hardware id as
// lowercase hexadecimal.
func (f HardwareIDFunc) DeviceID() string {
	id, ok := f()
	if !ok {
		return FallbackDeviceID
	}
	return strconv.FormatUint(id, 16)
}
