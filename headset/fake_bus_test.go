package headset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

// fakeCall records one outgoing method call issued through the fake bus.
type fakeCall struct {
	dest   string
	path   dbus.ObjectPath
	method string
	flags  dbus.Flags
	args   []interface{}
	// call is the handle returned to the backend; tests fill its Body or
	// Err and feed it to completeCall to simulate the reply.
	call *dbus.Call
}

// fakeExport records one Export invocation.
type fakeExport struct {
	value interface{}
	path  dbus.ObjectPath
	iface string
}

// fakeBus satisfies Bus without a bus connection. Method calls are recorded
// instead of sent; replies are delivered by the test through completeCall.
type fakeBus struct {
	mu          sync.Mutex
	calls       []*fakeCall
	exports     []fakeExport
	matches     int
	addMatchErr error
	// addMatchOK is how many AddMatchSignal calls succeed before
	// addMatchErr (when set) is returned.
	addMatchOK int
	exportErr  error
	signalCh   chan<- *dbus.Signal
	removed    bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (f *fakeBus) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: f, dest: dest, path: path}
}

func (f *fakeBus) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signalCh = ch
}

func (f *fakeBus) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = true
}

func (f *fakeBus) AddMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addMatchErr != nil && f.matches >= f.addMatchOK {
		return f.addMatchErr
	}
	f.matches++
	return nil
}

func (f *fakeBus) RemoveMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches--
	return nil
}

func (f *fakeBus) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return f.exportErr
	}
	f.exports = append(f.exports, fakeExport{value: v, path: path, iface: iface})
	return nil
}

// callsTo returns every recorded call whose method matches.
func (f *fakeBus) callsTo(method string) []*fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

// waitForCall polls until at least n calls to method have been recorded.
// Used when the call is issued by the loop goroutine.
func (f *fakeBus) waitForCall(t *testing.T, method string, n int) []*fakeCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := f.callsTo(method); len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d call(s) to %s", n, method)
	return nil
}

// fakeObject records Go invocations on the owning fakeBus. The embedded
// BusObject is nil; only Go is expected to be used.
type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	dest string
	path dbus.ObjectPath
}

var _ dbus.BusObject = (*fakeObject)(nil)

func (o *fakeObject) Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	call := &dbus.Call{
		Destination: o.dest,
		Path:        o.path,
		Method:      method,
		Args:        args,
	}
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()
	o.bus.calls = append(o.bus.calls, &fakeCall{
		dest:   o.dest,
		path:   o.path,
		method: method,
		flags:  flags,
		args:   args,
		call:   call,
	})
	return call
}

// stubDiscovery is a hand-rolled Discovery for tests that only need
// recording, not expectation checking.
type stubDiscovery struct {
	mu  sync.Mutex
	dev *Device
	err error

	speakerGains    []uint16
	microphoneGains []uint16
}

func (s *stubDiscovery) DeviceByPath(ctx context.Context, path dbus.ObjectPath) (*Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.dev != nil {
		return s.dev, nil
	}
	return &Device{Path: path, Address: "00:11:22:33:44:55", AdapterAddress: "AA:BB:CC:DD:EE:FF"}, nil
}

func (s *stubDiscovery) SpeakerGainChanged(dev *Device, gain uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakerGains = append(s.speakerGains, gain)
}

func (s *stubDiscovery) MicrophoneGainChanged(dev *Device, gain uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.microphoneGains = append(s.microphoneGains, gain)
}

func (s *stubDiscovery) speakerHistory() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.speakerGains...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBackend builds a backend on a fake bus with profile registration
// disabled and a ring interval long enough to never fire by itself.
func newTestBackend(t *testing.T) (*Backend, *fakeBus, *stubDiscovery) {
	t.Helper()

	fb := newFakeBus()
	disco := &stubDiscovery{}
	config, err := NewConfigBuilder().
		WithBus(fb).
		WithDiscovery(disco).
		WithLogger(discardLogger()).
		WithRingInterval(time.Hour).
		WithoutProfileRegistration().
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	b, err := New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	return b, fb, disco
}

// attachTestTransport installs a transport directly on the backend, the way
// the loop would. Only for tests that drive loop-side methods directly.
func attachTestTransport(t *testing.T, b *Backend) (*TestTransport, *Device) {
	t.Helper()

	tt := NewTestTransport()
	t.Cleanup(func() { tt.Close() })
	dev := &Device{
		Path:           "/org/bluez/hci0/dev_00_11_22_33_44_55",
		Address:        "00:11:22:33:44:55",
		AdapterAddress: "AA:BB:CC:DD:EE:FF",
	}
	b.rfcomm = newRFCOMMTransport(b, dev, tt, nil)
	return tt, dev
}

// errNotFound is a reusable failure for stubDiscovery.
var errNotFound = errors.New("device not found")
