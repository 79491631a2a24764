package entities

// IdentityKind discriminates the two authenticated caller types: a device
// presenting its own token, and the scheduler/operator presenting the
// system credential.
type IdentityKind int

const (
	IdentityDevice IdentityKind = iota
	IdentitySystem
)

// Principal is the authenticated caller resolved from the Authorization
// header. Device is set only when Kind == IdentityDevice.
type Principal struct {
	Kind   IdentityKind
	Device *Device
}

func DevicePrincipal(d *Device) Principal {
	return Principal{Kind: IdentityDevice, Device: d}
}

func SystemPrincipal() Principal {
	return Principal{Kind: IdentitySystem}
}

func (p Principal) IsSystem() bool {
	return p.Kind == IdentitySystem
}

// CanAccessDevice reports whether the principal may act on the given
// device identifier. Devices may only act on themselves.
func (p Principal) CanAccessDevice(deviceID string) bool {
	if p.IsSystem() {
		return true
	}
	return p.Device != nil && p.Device.DeviceID == deviceID
}
