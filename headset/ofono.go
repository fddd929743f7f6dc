package headset

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	ofonoService                   = "org.ofono"
	ofonoManagerInterface          = ofonoService + ".Manager"
	ofonoVoiceCallInterface        = ofonoService + ".VoiceCall"
	ofonoVoiceCallManagerInterface = ofonoService + ".VoiceCallManager"

	dbusDaemonInterface = "org.freedesktop.DBus"
)

// pathProps is the (object path, property dictionary) shape used by the
// telephony service for modem and call listings.
type pathProps struct {
	Path       dbus.ObjectPath
	Properties map[string]dbus.Variant
}

// refreshCalls rebuilds the call view from scratch: list every modem, then
// fan out one call-list request per modem. Triggered when a headset
// connects.
func (b *Backend) refreshCalls() {
	b.callAsync(ofonoService, "/", ofonoManagerInterface+".GetModems", b.modemsReply)
}

func (b *Backend) modemsReply(call *dbus.Call) {
	// The refresh belongs to the connection that started it; once the
	// transport is gone the registry has been cleared and a late reply must
	// not repopulate it.
	if b.rfcomm == nil {
		return
	}
	if call.Err != nil {
		b.logger.Error("GetModems failed", "error", call.Err)
		return
	}
	var modems []pathProps
	if err := call.Store(&modems); err != nil {
		b.logger.Error("malformed GetModems reply", "error", err)
		return
	}
	for _, m := range modems {
		b.callAsync(ofonoService, m.Path, ofonoVoiceCallManagerInterface+".GetCalls", b.callsReply)
	}
}

func (b *Backend) callsReply(call *dbus.Call) {
	if b.rfcomm == nil {
		return
	}
	if call.Err != nil {
		b.logger.Error("GetCalls failed", "error", call.Err)
		return
	}
	var calls []pathProps
	if err := call.Store(&calls); err != nil {
		b.logger.Error("malformed GetCalls reply", "error", err)
		return
	}
	for _, c := range calls {
		b.observeCall(string(c.Path), stateProperty(c.Properties))
	}
}

// observeCall classifies one reported call and starts ring alerts when the
// registry says this is the sole incoming call.
func (b *Backend) observeCall(path, state string) {
	b.logger.Debug("call reported", "path", path, "state", state)
	if b.calls.observe(path, state) && b.rfcomm != nil {
		b.rfcomm.ringStart()
	}
}

func stateProperty(props map[string]dbus.Variant) string {
	v, ok := props["State"]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

// voiceCallSend issues a fire-and-forget action (Answer, Hangup) on a call
// object. No reply is tracked; error replies would be logged by the
// telephony service itself and there is no retry policy.
func (b *Backend) voiceCallSend(path, action string) {
	b.bus.Object(ofonoService, dbus.ObjectPath(path)).
		Go(ofonoVoiceCallInterface+"."+action, dbus.FlagNoReplyExpected, nil)
}

// managerSend issues a fire-and-forget action on the voice-call manager of
// the modem owning the given call path.
func (b *Backend) managerSend(callPath, action string) {
	modem, ok := modemPath(callPath)
	if !ok {
		return
	}
	b.bus.Object(ofonoService, modem).
		Go(ofonoVoiceCallManagerInterface+"."+action, dbus.FlagNoReplyExpected, nil)
}

// modemPath extracts the modem object path from a call path, i.e. the first
// path segment: /modem0/voicecall01 -> /modem0.
func modemPath(callPath string) (dbus.ObjectPath, bool) {
	if len(callPath) < 2 || callPath[0] != '/' {
		return "", false
	}
	if i := strings.Index(callPath[1:], "/"); i > 0 {
		return dbus.ObjectPath(callPath[:i+1]), true
	}
	return "", false
}

// handleButton executes the multi-function button policy. The decision comes
// from the registry; this only translates it into telephony requests.
func (b *Backend) handleButton() {
	d := b.calls.buttonPress()
	switch d.action {
	case buttonAnswer:
		b.logger.Debug("answer incoming", "path", d.target)
		b.voiceCallSend(d.target, "Answer")
	case buttonHoldAndAnswer:
		b.logger.Debug("hold active calls and answer incoming", "path", d.target)
		b.managerSend(d.target, "HoldAndAnswer")
	case buttonHangupActive:
		b.logger.Debug("hangup active call", "path", d.target)
		b.voiceCallSend(d.target, "Hangup")
		if d.swap != "" {
			b.managerSend(d.swap, "SwapCalls")
		}
	case buttonHangupHeld:
		b.logger.Debug("hangup held call", "path", d.target)
		b.voiceCallSend(d.target, "Hangup")
	}
}

// signalMatches are the bus subscriptions the backend holds for its entire
// lifetime.
func signalMatches() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(dbusDaemonInterface),
			dbus.WithMatchInterface(dbusDaemonInterface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, ofonoService),
		},
		{
			dbus.WithMatchSender(ofonoService),
			dbus.WithMatchInterface(ofonoVoiceCallInterface),
			dbus.WithMatchMember("PropertyChanged"),
		},
		{
			dbus.WithMatchSender(ofonoService),
			dbus.WithMatchInterface(ofonoVoiceCallManagerInterface),
			dbus.WithMatchMember("CallAdded"),
		},
	}
}

// handleSignal classifies one bus signal. Signals are ignored entirely while
// no headset is connected; malformed bodies are logged and dropped with no
// state change.
func (b *Backend) handleSignal(sig *dbus.Signal) {
	if b.rfcomm == nil {
		return
	}

	switch sig.Name {
	case dbusDaemonInterface + ".NameOwnerChanged":
		var name, oldOwner, newOwner string
		if err := dbus.Store(sig.Body, &name, &oldOwner, &newOwner); err != nil {
			b.logger.Error("malformed NameOwnerChanged", "error", err)
			return
		}
		if name != ofonoService {
			return
		}
		if oldOwner != "" {
			// Not a fault: the telephony service going away resets the call
			// view cleanly.
			b.logger.Debug("telephony service disappeared")
			b.calls.clear()
		}
		if newOwner != "" {
			b.logger.Debug("telephony service appeared")
		}

	case ofonoVoiceCallInterface + ".PropertyChanged":
		var property string
		var value dbus.Variant
		if err := dbus.Store(sig.Body, &property, &value); err != nil {
			b.logger.Error("malformed VoiceCall.PropertyChanged", "error", err)
			return
		}
		if property != "State" {
			return
		}
		state, ok := value.Value().(string)
		if !ok {
			b.logger.Error("malformed VoiceCall.PropertyChanged", "value", value.String())
			return
		}
		path := string(sig.Path)
		b.logger.Debug("call state changed", "path", path, "state", state)
		b.calls.setState(path, state)
		// Any observed state change means the headset no longer needs to be
		// alerted.
		b.rfcomm.ringStop()

	case ofonoVoiceCallManagerInterface + ".CallAdded":
		var path dbus.ObjectPath
		var props map[string]dbus.Variant
		if err := dbus.Store(sig.Body, &path, &props); err != nil {
			b.logger.Error("malformed CallAdded", "error", err)
			return
		}
		b.observeCall(string(path), stateProperty(props))
	}
}
