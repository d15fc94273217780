package link

import "testing"

func TestHardwareIDFunc_FormatsLowercaseHex(t *testing.T) {
	provider := HardwareIDFunc(func() (uint64, bool) { return 0x3C71BF4A, true })

	if got := provider.DeviceID(); got != "3c71bf4a" {
		t.Errorf("DeviceID() = %q, want %q", got, "3c71bf4a")
	}
}

func TestHardwareIDFunc_Fallback(t *testing.T) {
	provider := HardwareIDFunc(func() (uint64, bool) { return 0, false })

	if got := provider.DeviceID(); got != FallbackDeviceID {
		t.Errorf("DeviceID() = %q, want %q", got, FallbackDeviceID)
	}
}

func TestStaticID(t *testing.T) {
	if got := StaticID("bench").DeviceID(); got != "bench" {
		t.Errorf("DeviceID() = %q, want %q", got, "bench")
	}
}

func TestDefaultIDProvider_NonEmpty(t *testing.T) {
	if got := DefaultIDProvider().DeviceID(); got == "" {
		t.Error("DefaultIDProvider().DeviceID() returned empty string")
	}
}
