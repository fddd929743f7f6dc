package headset

import "errors"

var (
	// ErrNoBus is returned when a Backend is constructed without a bus
	// connection.
	//
	// This indicates a configuration error. The backend needs the system bus
	// both to expose the profile handler and to reach the telephony service.
	ErrNoBus = errors.New("no bus connection configured")

	// ErrNoDiscovery is returned when a Backend is constructed without a
	// device-discovery collaborator. Connections cannot be accepted without
	// a way to resolve the device object path handed over by the Bluetooth
	// daemon.
	ErrNoDiscovery = errors.New("no discovery collaborator configured")

	// ErrAlreadyClosed is returned when Close is called on a Backend that
	// has already been closed, or when a request races with shutdown.
	ErrAlreadyClosed = errors.New("backend already closed")

	// ErrLoopRunning is returned when Loop is called while it is already
	// running. The loop must run exactly once per backend.
	ErrLoopRunning = errors.New("loop already running")

	// ErrNotConnected is returned by operations that need a live control
	// channel while no headset is connected.
	ErrNotConnected = errors.New("no headset connected")

	// ErrAudioAcquired is returned when the audio path is acquired while a
	// previous acquisition has not been released. At most one audio socket
	// exists per backend.
	ErrAudioAcquired = errors.New("audio path already acquired")
)
