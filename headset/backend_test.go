package headset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/mock/gomock"

	"bluon.io/audio/hspagw/at"
)

func TestBackendNew(t *testing.T) {
	t.Run("ErrNoBus without a bus connection", func(t *testing.T) {
		_, err := New(context.Background(), Config{Discovery: &stubDiscovery{}})

		if !errors.Is(err, ErrNoBus) {
			t.Errorf("expected ErrNoBus, got: %v", err)
		}
	})

	t.Run("ErrNoDiscovery without a discovery collaborator", func(t *testing.T) {
		_, err := New(context.Background(), Config{Bus: newFakeBus()})

		if !errors.Is(err, ErrNoDiscovery) {
			t.Errorf("expected ErrNoDiscovery, got: %v", err)
		}
	})

	t.Run("subscription failure unwinds the signal channel", func(t *testing.T) {
		fb := newFakeBus()
		fb.addMatchErr = errors.New("match rejected")

		_, err := New(context.Background(), Config{
			Bus:       fb,
			Discovery: &stubDiscovery{},
			Logger:    discardLogger(),
		})

		if err == nil {
			t.Fatal("expected error from subscription failure")
		}
		if !fb.removed {
			t.Error("signal channel not removed on failure")
		}
	})

	t.Run("partial subscription failure removes earlier matches", func(t *testing.T) {
		fb := newFakeBus()
		fb.addMatchErr = errors.New("match rejected")
		fb.addMatchOK = 2

		_, err := New(context.Background(), Config{
			Bus:       fb,
			Discovery: &stubDiscovery{},
			Logger:    discardLogger(),
		})

		if err == nil {
			t.Fatal("expected error from subscription failure")
		}
		if fb.matches != 0 {
			t.Errorf("expected all matches removed, %d left", fb.matches)
		}
		if !fb.removed {
			t.Error("signal channel not removed on failure")
		}
	})

	t.Run("export failure removes subscriptions", func(t *testing.T) {
		fb := newFakeBus()
		fb.exportErr = errors.New("export rejected")

		_, err := New(context.Background(), Config{
			Bus:       fb,
			Discovery: &stubDiscovery{},
			Logger:    discardLogger(),
		})

		if err == nil {
			t.Fatal("expected error from export failure")
		}
		if fb.matches != 0 {
			t.Errorf("expected all matches removed, %d left", fb.matches)
		}
		if !fb.removed {
			t.Error("signal channel not removed on failure")
		}
	})

	t.Run("cancelled context refuses construction", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(ctx, Config{
			Bus:       newFakeBus(),
			Discovery: &stubDiscovery{},
			Logger:    discardLogger(),
		})

		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

// runLoop starts the event loop and returns a stop function that cancels it
// and waits for its exit.
func runLoop(t *testing.T, b *Backend) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Loop(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-errCh:
			if err != context.Canceled {
				t.Errorf("unexpected loop exit error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not exit")
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoopLifecycle(t *testing.T) {
	t.Run("attach, command, status, teardown", func(t *testing.T) {
		b, fb, _ := newTestBackend(t)
		stop := runLoop(t, b)

		tt := NewTestTransport()
		dev := &Device{Address: "00:11:22:33:44:55", AdapterAddress: "AA:BB:CC:DD:EE:FF"}
		if err := b.AttachTransport(context.Background(), tt, dev); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}
		fb.waitForCall(t, ofonoManagerInterface+".GetModems", 1)

		status, err := b.Status(context.Background())
		if err != nil {
			t.Fatalf("unexpected error from Status(): %v", err)
		}
		if !status.Connected || status.DeviceAddress != "00:11:22:33:44:55" {
			t.Errorf("unexpected status: %+v", status)
		}

		tt.SendData("AT+VGS=7\r")
		waitFor(t, "gain to be applied", func() bool {
			s, err := b.Status(context.Background())
			return err == nil && s.SpeakerGain == 7
		})
		if !strings.Contains(tt.Written(), at.ResultOK) {
			t.Errorf("expected OK acknowledgment, got %q", tt.Written())
		}

		stop()
		if !tt.Closed() {
			t.Error("transport not closed on loop exit")
		}

		_, err = b.Status(context.Background())
		if !errors.Is(err, ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed after loop exit, got: %v", err)
		}
	})

	t.Run("incoming call signal rings until answered", func(t *testing.T) {
		b, fb, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		dev := &Device{Address: "00:11:22:33:44:55"}
		if err := b.AttachTransport(context.Background(), tt, dev); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		fb.mu.Lock()
		ch := fb.signalCh
		fb.mu.Unlock()
		ch <- &dbus.Signal{
			Name: ofonoVoiceCallManagerInterface + ".CallAdded",
			Path: "/modem0",
			Body: []interface{}{
				dbus.ObjectPath("/modem0/call1"),
				map[string]dbus.Variant{"State": dbus.MakeVariant("incoming")},
			},
		}
		waitFor(t, "ring alert", func() bool {
			return strings.Contains(tt.Written(), at.Ring)
		})

		tt.SendData("AT+CKPD=200\r")
		fb.waitForCall(t, ofonoVoiceCallInterface+".Answer", 1)

		ch <- &dbus.Signal{
			Name: ofonoVoiceCallInterface + ".PropertyChanged",
			Path: "/modem0/call1",
			Body: []interface{}{"State", dbus.MakeVariant("active")},
		}
		waitFor(t, "ringing to stop", func() bool {
			s, err := b.Status(context.Background())
			return err == nil && !s.Ringing && s.ActiveCalls == 1
		})
	})

	t.Run("hangup tears the transport down", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		tt.Close()
		waitFor(t, "transport teardown", func() bool {
			s, err := b.Status(context.Background())
			return err == nil && !s.Connected
		})
	})

	t.Run("ring repeats on the configured interval", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		b.ringInterval = 10 * time.Millisecond
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		fb := b.bus.(*fakeBus)
		fb.mu.Lock()
		ch := fb.signalCh
		fb.mu.Unlock()
		ch <- &dbus.Signal{
			Name: ofonoVoiceCallManagerInterface + ".CallAdded",
			Path: "/modem0",
			Body: []interface{}{
				dbus.ObjectPath("/modem0/call1"),
				map[string]dbus.Variant{"State": dbus.MakeVariant("incoming")},
			},
		}

		waitFor(t, "repeated ring alerts", func() bool {
			return strings.Count(tt.Written(), at.Ring) >= 3
		})
	})

	t.Run("call listing on attach drives ring and answer", func(t *testing.T) {
		b, fb, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		modems := fb.waitForCall(t, ofonoManagerInterface+".GetModems", 1)
		modems[0].call.Body = []interface{}{
			[][]interface{}{
				{dbus.ObjectPath("/modem1"), map[string]dbus.Variant{}},
			},
		}
		b.replies <- modems[0].call

		lists := fb.waitForCall(t, ofonoVoiceCallManagerInterface+".GetCalls", 1)
		if lists[0].path != "/modem1" {
			t.Fatalf("GetCalls sent to %s", lists[0].path)
		}
		lists[0].call.Body = []interface{}{
			[][]interface{}{
				{dbus.ObjectPath("/modem1/call1"), map[string]dbus.Variant{
					"State": dbus.MakeVariant("incoming"),
				}},
			},
		}
		b.replies <- lists[0].call

		waitFor(t, "ring alert on the control channel", func() bool {
			return strings.Contains(tt.Written(), at.Ring)
		})

		tt.SendData(at.CmdButton + "\r")
		answers := fb.waitForCall(t, ofonoVoiceCallInterface+".Answer", 1)
		if answers[0].path != "/modem1/call1" {
			t.Errorf("Answer sent to %s", answers[0].path)
		}

		fb.mu.Lock()
		ch := fb.signalCh
		fb.mu.Unlock()
		ch <- &dbus.Signal{
			Name: ofonoVoiceCallInterface + ".PropertyChanged",
			Path: "/modem1/call1",
			Body: []interface{}{"State", dbus.MakeVariant("active")},
		}

		waitFor(t, "ring to stop on answer", func() bool {
			s, err := b.Status(context.Background())
			return err == nil && !s.Ringing && s.ActiveCalls == 1
		})
	})

	t.Run("over-long line is acknowledged, not fatal", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		// Two chunks without a terminator fill the read buffer exactly.
		tt.SendData(strings.Repeat("X", 256))
		tt.SendData(strings.Repeat("X", 256))
		waitFor(t, "oversized content to be acknowledged", func() bool {
			return strings.Contains(tt.Written(), at.ResultOK)
		})

		tt.SendData(at.CmdSpeakerGain + "5\r")
		waitFor(t, "channel to keep working", func() bool {
			s, err := b.Status(context.Background())
			return err == nil && s.Connected && s.SpeakerGain == 5
		})
	})

	t.Run("ErrLoopRunning on concurrent start", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		waitFor(t, "loop to start", func() bool {
			_, err := b.Status(context.Background())
			return err == nil
		})
		if err := b.Loop(context.Background()); !errors.Is(err, ErrLoopRunning) {
			t.Errorf("expected ErrLoopRunning, got: %v", err)
		}
	})
}

// An applied request must deliver its result even when the loop shuts down
// immediately afterwards; a descriptor handed out by the operation would
// otherwise leak into a double close.
func TestDoDeliversResultOnShutdown(t *testing.T) {
	for i := 0; i < 200; i++ {
		b, _, _ := newTestBackend(t)
		go func() {
			req := <-b.requests
			v, err := req.apply()
			req.resp <- response{value: v, err: err}
			close(b.done)
		}()

		v, err := b.do(context.Background(), func() (interface{}, error) {
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error from do(): %v", err)
		}
		if v.(int) != 42 {
			t.Fatalf("unexpected value: %v", v)
		}
	}
}

func TestBackendClose(t *testing.T) {
	t.Run("second close reports ErrAlreadyClosed", func(t *testing.T) {
		b, fb, _ := newTestBackend(t)

		if err := b.Close(); err != nil {
			t.Errorf("unexpected error from Close(): %v", err)
		}
		if err := b.Close(); !errors.Is(err, ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed, got: %v", err)
		}
		if !fb.removed {
			t.Error("signal channel not removed")
		}
		if fb.matches != 0 {
			t.Errorf("expected all matches removed, %d left", fb.matches)
		}
	})
}

func TestAudioAcquisition(t *testing.T) {
	t.Run("ErrNotConnected without a transport", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		_, _, _, err := b.Acquire(context.Background(), false)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("acquire hands out the socket and the fixed MTU", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		var gotAdapter, gotDevice string
		b.sco = func(adapterAddr, deviceAddr string) (int, error) {
			gotAdapter, gotDevice = adapterAddr, deviceAddr
			return 42, nil
		}
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		dev := &Device{Address: "00:11:22:33:44:55", AdapterAddress: "AA:BB:CC:DD:EE:FF"}
		if err := b.AttachTransport(context.Background(), tt, dev); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		fd, in, out, err := b.Acquire(context.Background(), false)
		if err != nil {
			t.Fatalf("unexpected error from Acquire(): %v", err)
		}
		if fd != 42 || in != 48 || out != 48 {
			t.Errorf("unexpected result: fd=%d in=%d out=%d", fd, in, out)
		}
		if gotAdapter != "AA:BB:CC:DD:EE:FF" || gotDevice != "00:11:22:33:44:55" {
			t.Errorf("socket opened with %q -> %q", gotAdapter, gotDevice)
		}

		status, err := b.Status(context.Background())
		if err != nil {
			t.Fatalf("unexpected error from Status(): %v", err)
		}
		if !status.AudioAcquired {
			t.Error("status does not report the acquired audio path")
		}
	})

	t.Run("ErrAudioAcquired on double acquisition", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		b.sco = func(adapterAddr, deviceAddr string) (int, error) { return 42, nil }
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		if _, _, _, err := b.Acquire(context.Background(), false); err != nil {
			t.Fatalf("unexpected error from first Acquire(): %v", err)
		}
		if _, _, _, err := b.Acquire(context.Background(), true); !errors.Is(err, ErrAudioAcquired) {
			t.Errorf("expected ErrAudioAcquired, got: %v", err)
		}
	})

	t.Run("release allows re-acquisition", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		b.sco = func(adapterAddr, deviceAddr string) (int, error) { return 42, nil }
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		if _, _, _, err := b.Acquire(context.Background(), false); err != nil {
			t.Fatalf("unexpected error from Acquire(): %v", err)
		}
		if err := b.Release(context.Background()); err != nil {
			t.Fatalf("unexpected error from Release(): %v", err)
		}
		if _, _, _, err := b.Acquire(context.Background(), false); err != nil {
			t.Errorf("unexpected error from re-Acquire(): %v", err)
		}
	})

	t.Run("release notifies the volume control even without acquisition", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		ctrl := gomock.NewController(t)
		mockVolume := NewMockVolumeControl(ctrl)
		mockVolume.EXPECT().AudioReleased()
		b.volume = mockVolume
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		if err := b.Release(context.Background()); err != nil {
			t.Errorf("unexpected error from Release(): %v", err)
		}
	})

	t.Run("socket failure surfaces to the caller", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		scoErr := errors.New("no route to headset")
		b.sco = func(adapterAddr, deviceAddr string) (int, error) { return -1, scoErr }
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		if _, _, _, err := b.Acquire(context.Background(), false); !errors.Is(err, scoErr) {
			t.Errorf("expected the socket error, got: %v", err)
		}
	})
}

func TestSetGainsViaLoop(t *testing.T) {
	t.Run("ErrNotConnected without a transport", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		if err := b.SetSpeakerGain(context.Background(), 5); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
		if err := b.SetMicrophoneGain(context.Background(), 5); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got: %v", err)
		}
	})

	t.Run("gain lines reach the headset", func(t *testing.T) {
		b, _, _ := newTestBackend(t)
		stop := runLoop(t, b)
		defer stop()

		tt := NewTestTransport()
		if err := b.AttachTransport(context.Background(), tt, &Device{}); err != nil {
			t.Fatalf("unexpected error from AttachTransport(): %v", err)
		}

		if err := b.SetSpeakerGain(context.Background(), 9); err != nil {
			t.Fatalf("unexpected error from SetSpeakerGain(): %v", err)
		}
		if err := b.SetMicrophoneGain(context.Background(), 3); err != nil {
			t.Fatalf("unexpected error from SetMicrophoneGain(): %v", err)
		}

		written := tt.Written()
		if !strings.Contains(written, at.FormatSpeakerGain(9)) {
			t.Errorf("missing speaker gain line in %q", written)
		}
		if !strings.Contains(written, at.FormatMicrophoneGain(3)) {
			t.Errorf("missing microphone gain line in %q", written)
		}
	})
}
