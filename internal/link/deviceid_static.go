//go:build js || wasip1

package link

// DefaultIDProvider returns the provider used when none is injected.
// This platform exposes no hardware identifier.
func DefaultIDProvider() IDProvider {
	return StaticID(FallbackDeviceID)
}
