package port

import (
	"hubspace2mqtt/pkg/hubspace"
)

// VendorService is the cloud boundary the adapter actor drives.
// hubspace.Client implements it against the real vendor and
// hubspace.TestService implements it in memory.
type VendorService interface {
	// Authenticate establishes a session. Must be called before the
	// other operations.
	Authenticate() error
	// FetchDevices downloads one full device listing generation.
	FetchDevices() (hubspace.Snapshot, error)
	// SetState pushes a batch of state values for one metadevice and
	// returns the resulting state document.
	SetState(metadeviceID string, values []hubspace.StateUpdate) (*hubspace.StateDoc, error)
}
