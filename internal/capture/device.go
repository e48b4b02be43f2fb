package capture

import "context"

// Device acquires a capture stream from the host.
type Device interface {
	// Open requests the device. Errors should wrap ErrDeviceDenied or
	// ErrDeviceUnavailable; anything else is treated as unavailable.
	Open(ctx context.Context) (Stream, error)
	Format() Format
}

// Stream is an acquired device handle.
type Stream interface {
	// Start begins capture. Fragments arrive on the returned channel in
	// device order. The channel is closed once Stop has taken effect and
	// the final fragment was delivered.
	Start() (<-chan []byte, error)
	// Stop halts capture.
	Stop() error
	// Release frees the device handle. Safe to call more than once.
	Release() error
}
