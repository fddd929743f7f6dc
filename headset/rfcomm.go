package headset

import (
	"bufio"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bluon.io/audio/hspagw/at"
)

// Control-channel reads are capped at one buffer; headset commands are a
// handful of bytes each.
const rfcommReadBuffer = 512

// rfcommTransport owns the single active control channel to a headset. It is
// created when the Bluetooth daemon delivers a connection (or when a tty
// transport is attached directly) and destroyed on hangup, read error or
// explicit teardown. All fields are owned by the backend loop; the reader
// goroutine communicates through the lines and hangup channels only.
type rfcommTransport struct {
	backend *Backend
	device  *Device
	conn    Transport
	// file is non-nil when conn wraps a descriptor handed over by the
	// Bluetooth daemon; teardown shuts the socket down before closing so the
	// reader unblocks first.
	file *os.File

	speakerGain    uint16
	microphoneGain uint16

	lines  chan string
	hangup chan error
	// quit is closed on teardown so a reader blocked on a full lines
	// channel can exit.
	quit chan struct{}

	// ring exists only while ring alerts are being sent.
	ring *time.Timer

	acquired bool
}

func newRFCOMMTransport(b *Backend, dev *Device, conn Transport, file *os.File) *rfcommTransport {
	t := &rfcommTransport{
		backend: b,
		device:  dev,
		conn:    conn,
		file:    file,
		lines:   make(chan string, 8),
		hangup:  make(chan error, 1),
		quit:    make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// scanControlLine splits on AT line terminators but never lets a line kill
// the scanner: when a terminator hasn't shown up by the time the read buffer
// is full, the buffered bytes are emitted as one line. The chunk parses as
// nothing and is acknowledged like any unrecognized command, and the channel
// stays up.
func scanControlLine(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := at.Splitter(data, atEOF)
	if advance == 0 && err == nil && !atEOF && len(data) >= rfcommReadBuffer {
		return len(data), data, nil
	}
	return advance, token, err
}

// readLoop is the only reader of the control channel. It feeds complete AT
// lines to the backend loop and reports the first read failure (or EOF) as a
// hangup, then exits. Teardown closes the transport, which unblocks the
// pending read and ends this goroutine.
func (t *rfcommTransport) readLoop() {
	scanner := bufio.NewScanner(t.conn)
	scanner.Buffer(make([]byte, rfcommReadBuffer), rfcommReadBuffer)
	scanner.Split(scanControlLine)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case t.lines <- line:
		case <-t.quit:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case t.hangup <- err:
	case <-t.quit:
	}
}

// handleLine processes one inbound line on the backend loop. Every line,
// recognized or not, is acknowledged with OK; only the content of unknown
// lines is ignored.
func (b *Backend) handleLine(line string) {
	t := b.rfcomm
	b.logger.Debug("rfcomm <<", "line", line)

	if cmd, ok := at.ParseCommand(line); ok {
		switch cmd.Kind {
		case at.CommandSpeakerGain:
			t.speakerGain = cmd.Gain
			b.discovery.SpeakerGainChanged(t.device, cmd.Gain)
		case at.CommandMicrophoneGain:
			t.microphoneGain = cmd.Gain
			b.discovery.MicrophoneGainChanged(t.device, cmd.Gain)
		case at.CommandButton:
			b.handleButton()
		}
	}

	t.write(at.ResultOK)
}

// write sends one protocol line. Failures are logged only; a dead channel
// surfaces through the hangup path, which handles teardown.
func (t *rfcommTransport) write(s string) {
	t.backend.logger.Debug("rfcomm >>", "line", s)
	if _, err := t.conn.Write([]byte(s)); err != nil {
		t.backend.logger.Error("rfcomm write failed", "error", err)
	}
}

// setSpeakerGain pushes a gain value to the headset. No wire output when the
// value is unchanged; the stored value is updated before writing so the
// headset's echo of the same value is absorbed by that check.
func (t *rfcommTransport) setSpeakerGain(gain uint16) {
	if t.speakerGain == gain {
		return
	}
	t.speakerGain = gain
	t.write(at.FormatSpeakerGain(gain))
}

func (t *rfcommTransport) setMicrophoneGain(gain uint16) {
	if t.microphoneGain == gain {
		return
	}
	t.microphoneGain = gain
	t.write(at.FormatMicrophoneGain(gain))
}

// ringStart begins ring alerts: an immediate RING line, then one per
// interval. Starting while already ringing is a no-op.
func (t *rfcommTransport) ringStart() {
	if t.ring != nil {
		return
	}
	t.write(at.Ring)
	t.ring = time.NewTimer(t.backend.ringInterval)
}

// ringExpired re-arms the repeating alert; invoked by the loop on timer
// expiry.
func (t *rfcommTransport) ringExpired() {
	t.write(at.Ring)
	t.ring.Reset(t.backend.ringInterval)
}

// ringStop cancels ring alerts. Stopping while not ringing is a no-op.
func (t *rfcommTransport) ringStop() {
	if t.ring == nil {
		return
	}
	t.ring.Stop()
	t.ring = nil
}

// teardownTransport destroys the active transport in fixed order: ring timer
// first, then call state, then detach from the backend, then shut down and
// close the descriptor. The order guarantees no stale timer or reader event
// is acted on mid-teardown: once rfcomm is nil the loop stops selecting on
// the transport's channels.
func (b *Backend) teardownTransport() {
	t := b.rfcomm
	if t == nil {
		return
	}

	t.ringStop()
	b.calls.clear()
	b.rfcomm = nil
	close(t.quit)

	if t.acquired {
		t.acquired = false
		b.volume.AudioReleased()
	}

	if t.file != nil {
		unix.Shutdown(int(t.file.Fd()), unix.SHUT_RDWR)
	}
	if err := t.conn.Close(); err != nil {
		b.logger.Error("close control channel", "error", err)
	}
	b.logger.Info("control channel closed", "device", t.device.Address)
}
