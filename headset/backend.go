// Package headset implements the audio-gateway side of the Bluetooth
// Headset Profile (HSP-AG).
//
// The backend registers itself as a profile handler with the Bluetooth
// daemon, accepts the RFCOMM control channel a headset opens, speaks the
// line-oriented AT command protocol over it, acquires the SCO audio socket
// on demand and mirrors call-control state from the telephony service.
//
// Three independently asynchronous sources feed one consistent view: the
// profile manager's method calls, the control channel's AT lines and the
// telephony service's replies and signals. A single event loop owns all
// state; every other goroutine (the control-channel reader, the bus
// library's dispatchers) communicates with it through channels only, so no
// locking is involved and no operation blocks the loop.
package headset

import (
	"context"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// Bus is the slice of the bus connection the backend uses. *dbus.Conn
// implements it; tests substitute a fake.
type Bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Export(v interface{}, path dbus.ObjectPath, iface string) error
}

// Backend is the process-wide HSP-AG state: the bus connection, the
// collaborators, at most one control-channel transport, the call registry
// and the outstanding asynchronous requests. Create it once with New,
// run Loop exactly once, Close at shutdown.
type Backend struct {
	bus       Bus
	discovery Discovery
	volume    VolumeControl
	logger    *slog.Logger

	profilePath      dbus.ObjectPath
	profileUUID      string
	ringInterval     time.Duration
	skipRegistration bool

	calls  *callRegistry
	rfcomm *rfcommTransport

	pending map[*dbus.Call]func(*dbus.Call)
	// sco opens the audio socket; a seam for tests, scoConnect in
	// production.
	sco func(adapterAddr, deviceAddr string) (int, error)

	replies  chan *dbus.Call
	signals  chan *dbus.Signal
	requests chan *request

	// done is closed when the loop exits; requests observe it to fail
	// instead of blocking forever.
	done chan struct{}

	closed      bool
	loopRunning bool
}

// request is an external operation routed to the loop and answered on a
// per-request channel.
type request struct {
	apply func() (interface{}, error)
	resp  chan response
}

type response struct {
	value interface{}
	err   error
}

// New creates the backend: it subscribes to the telephony signals and, unless
// disabled, exports the profile object and issues the asynchronous
// registration request. The registration reply is handled once Loop runs.
func New(ctx context.Context, config Config) (*Backend, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Backend{
		bus:              config.Bus,
		discovery:        config.Discovery,
		volume:           config.VolumeControl,
		logger:           config.Logger,
		profilePath:      config.ProfilePath,
		profileUUID:      config.ProfileUUID,
		ringInterval:     config.RingInterval,
		skipRegistration: config.SkipProfileRegistration,
		calls:            newCallRegistry(),
		pending:          make(map[*dbus.Call]func(*dbus.Call)),
		sco:              scoConnect,
		replies:          make(chan *dbus.Call, 16),
		signals:          make(chan *dbus.Signal, 16),
		requests:         make(chan *request),
		done:             make(chan struct{}),
	}

	b.bus.Signal(b.signals)
	matches := signalMatches()
	for i, match := range matches {
		if err := b.bus.AddMatchSignal(match...); err != nil {
			b.removeMatches(matches[:i])
			b.bus.RemoveSignal(b.signals)
			return nil, err
		}
	}

	if !b.skipRegistration {
		if err := b.exportProfile(); err != nil {
			b.removeMatches(matches)
			b.bus.RemoveSignal(b.signals)
			return nil, err
		}
		b.registerProfile()
	}

	return b, nil
}

// Loop is the event loop that owns all backend state. It must be called
// exactly once after New and runs until the context is cancelled. Every
// source is handled here: bus signals, asynchronous-call completions,
// control-channel lines and hangups, the ring timer and external requests.
func (b *Backend) Loop(ctx context.Context) error {
	if b.loopRunning {
		return ErrLoopRunning
	}
	b.loopRunning = true
	defer func() { b.loopRunning = false }()
	defer close(b.done)

	for {
		// The transport cases are disabled (nil channels) while no headset
		// is connected, and the ring case while no alert is pending.
		var lines <-chan string
		var hangup <-chan error
		var ring <-chan time.Time
		if t := b.rfcomm; t != nil {
			lines, hangup = t.lines, t.hangup
			if t.ring != nil {
				ring = t.ring.C
			}
		}

		select {
		case <-ctx.Done():
			b.teardownTransport()
			b.dropPending()
			return ctx.Err()

		case req := <-b.requests:
			v, err := req.apply()
			req.resp <- response{value: v, err: err}

		case call := <-b.replies:
			b.completeCall(call)

		case sig := <-b.signals:
			b.handleSignal(sig)

		case line := <-lines:
			b.handleLine(line)

		case err := <-hangup:
			b.logger.Info("lost control channel", "error", err)
			b.teardownTransport()

		case <-ring:
			if t := b.rfcomm; t != nil && t.ring != nil {
				t.ringExpired()
			}
		}
	}
}

// do routes an operation onto the loop and waits for its result.
func (b *Backend) do(ctx context.Context, apply func() (interface{}, error)) (interface{}, error) {
	req := &request{apply: apply, resp: make(chan response, 1)}

	select {
	case b.requests <- req:
	case <-b.done:
		return nil, ErrAlreadyClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Once the loop has accepted the request it answers before exiting, so
	// a buffered response outranks shutdown: the operation did run and its
	// result (a descriptor, say) must reach the caller.
	select {
	case r := <-req.resp:
		return r.value, r.err
	case <-b.done:
		select {
		case r := <-req.resp:
			return r.value, r.err
		default:
			return nil, ErrAlreadyClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Backend) removeMatches(matches [][]dbus.MatchOption) {
	for _, match := range matches {
		b.bus.RemoveMatchSignal(match...)
	}
}

// Close releases the bus-facing resources: the profile registration, the
// exported objects and the signal subscription. Cancel the Loop context
// first; Loop's exit already tears down the transport and drops the pending
// requests.
func (b *Backend) Close() error {
	if b.closed {
		return ErrAlreadyClosed
	}
	b.closed = true

	if !b.skipRegistration {
		b.unregisterProfile()
		b.unexportProfile()
	}
	b.removeMatches(signalMatches())
	b.bus.RemoveSignal(b.signals)
	return nil
}

// Status is a point-in-time view of the backend for reporting surfaces.
type Status struct {
	Connected      bool   `json:"connected"`
	DeviceAddress  string `json:"device_address,omitempty"`
	SpeakerGain    uint16 `json:"speaker_gain"`
	MicrophoneGain uint16 `json:"microphone_gain"`
	Ringing        bool   `json:"ringing"`
	AudioAcquired  bool   `json:"audio_acquired"`
	Calls          int    `json:"calls"`
	ActiveCalls    int    `json:"active_calls"`
	HeldCalls      int    `json:"held_calls"`
	IncomingCall   string `json:"incoming_call,omitempty"`
}

// Status reports the current connection and call view.
func (b *Backend) Status(ctx context.Context) (Status, error) {
	v, err := b.do(ctx, func() (interface{}, error) {
		return b.snapshot(), nil
	})
	if err != nil {
		return Status{}, err
	}
	return v.(Status), nil
}

func (b *Backend) snapshot() Status {
	s := Status{
		Calls:       len(b.calls.entries),
		ActiveCalls: len(b.calls.active),
		HeldCalls:   len(b.calls.held),
	}
	if b.calls.incoming != nil {
		s.IncomingCall = b.calls.incoming.path
	}
	if t := b.rfcomm; t != nil {
		s.Connected = true
		s.DeviceAddress = t.device.Address
		s.SpeakerGain = t.speakerGain
		s.MicrophoneGain = t.microphoneGain
		s.Ringing = t.ring != nil
		s.AudioAcquired = t.acquired
	}
	return s
}

// Acquire opens the SCO audio socket toward the connected headset and
// reports the usable MTU in both directions. The optional flag is carried
// for the audio router's contract; acquisition behaves the same either way.
// The returned descriptor is owned by the caller's device collaborator.
func (b *Backend) Acquire(ctx context.Context, optional bool) (fd, inputMTU, outputMTU int, err error) {
	v, err := b.do(ctx, func() (interface{}, error) {
		return b.acquireAudio(optional)
	})
	if err != nil {
		return -1, 0, 0, err
	}
	return v.(int), scoMTU, scoMTU, nil
}

func (b *Backend) acquireAudio(optional bool) (interface{}, error) {
	t := b.rfcomm
	if t == nil {
		return nil, ErrNotConnected
	}
	if t.acquired {
		return nil, ErrAudioAcquired
	}

	fd, err := b.sco(t.device.AdapterAddress, t.device.Address)
	if err != nil {
		b.logger.Error("sco acquire failed", "device", t.device.Address,
			"optional", optional, "error", err)
		return nil, err
	}

	t.acquired = true
	b.volume.AudioAcquired(t.device)
	return fd, nil
}

// Release marks the audio path inactive and notifies the volume-control
// collaborator, whether or not an acquisition is outstanding. The SCO
// descriptor itself is closed by the owning device collaborator, not here.
func (b *Backend) Release(ctx context.Context) error {
	_, err := b.do(ctx, func() (interface{}, error) {
		t := b.rfcomm
		if t == nil {
			return nil, ErrNotConnected
		}
		t.acquired = false
		b.volume.AudioReleased()
		return nil, nil
	})
	return err
}

// SetSpeakerGain pushes a speaker gain value to the headset. No wire output
// when the value is unchanged.
func (b *Backend) SetSpeakerGain(ctx context.Context, gain uint16) error {
	_, err := b.do(ctx, func() (interface{}, error) {
		if b.rfcomm == nil {
			return nil, ErrNotConnected
		}
		b.rfcomm.setSpeakerGain(gain)
		return nil, nil
	})
	return err
}

// SetMicrophoneGain pushes a microphone gain value to the headset.
func (b *Backend) SetMicrophoneGain(ctx context.Context, gain uint16) error {
	_, err := b.do(ctx, func() (interface{}, error) {
		if b.rfcomm == nil {
			return nil, ErrNotConnected
		}
		b.rfcomm.setMicrophoneGain(gain)
		return nil, nil
	})
	return err
}
