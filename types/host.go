package types

// Host is the set of platform primitives the web endpoint hands control to.
type Host interface {
	// Reboot restarts the station. It may not return.
	Reboot() error
	// StartSetupMode enters the pairing/setup routine (Wi-Fi provisioning).
	StartSetupMode() error
}
