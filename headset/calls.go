package headset

// Call states reported by the telephony service.
const (
	callStateIncoming     = "incoming"
	callStateWaiting      = "waiting"
	callStateActive       = "active"
	callStateHeld         = "held"
	callStateDisconnected = "disconnected"
)

// callEntry is the canonical record for one call path. The active and held
// views reference these entries rather than holding copies, so the identity
// of a call is shared across all collections.
type callEntry struct {
	path string
	// seq orders entries by registration, used to pick "the" call when a
	// button action must choose among several.
	seq uint64
}

// callRegistry tracks every call path known to the telephony service, with
// active/held membership views over the same entries and at most one
// incoming call. All methods are pure state manipulation so the tracker can
// be exercised without an event loop or a bus.
type callRegistry struct {
	entries  map[string]*callEntry
	active   map[string]*callEntry
	held     map[string]*callEntry
	incoming *callEntry
	seq      uint64
}

func newCallRegistry() *callRegistry {
	return &callRegistry{
		entries: make(map[string]*callEntry),
		active:  make(map[string]*callEntry),
		held:    make(map[string]*callEntry),
	}
}

// observe records a call reported by the telephony service, either from the
// initial call list or from a call-added signal. Incoming and waiting calls
// set the incoming pointer; every other state counts as active. It reports
// true when ring alerts should start: the call is incoming and it is the
// only call known.
func (r *callRegistry) observe(path, state string) bool {
	e := r.entries[path]
	if e == nil {
		r.seq++
		e = &callEntry{path: path, seq: r.seq}
		r.entries[path] = e
	}

	if state == callStateIncoming || state == callStateWaiting {
		r.incoming = e
		return len(r.entries) == 1
	}

	r.active[path] = e
	return false
}

// setState applies a call state change. Unknown paths and unknown states are
// ignored; repeated identical changes are no-ops.
func (r *callRegistry) setState(path, state string) {
	switch state {
	case callStateActive:
		if r.incoming != nil && r.incoming.path == path {
			r.incoming = nil
		}
		delete(r.held, path)
		if e := r.entries[path]; e != nil {
			r.active[path] = e
		}
	case callStateHeld:
		delete(r.active, path)
		if e := r.entries[path]; e != nil {
			r.held[path] = e
		}
	case callStateDisconnected:
		if r.incoming != nil && r.incoming.path == path {
			r.incoming = nil
		}
		delete(r.active, path)
		delete(r.held, path)
		delete(r.entries, path)
	}
}

// clear drops every call unconditionally. Used when the telephony service
// goes away and on transport teardown.
func (r *callRegistry) clear() {
	r.entries = make(map[string]*callEntry)
	r.active = make(map[string]*callEntry)
	r.held = make(map[string]*callEntry)
	r.incoming = nil
}

// buttonAction is the decision for one multi-function button press.
type buttonAction int

const (
	buttonNone buttonAction = iota
	buttonAnswer
	buttonHoldAndAnswer
	buttonHangupActive
	buttonHangupHeld
)

// buttonDecision names the action and the call path it applies to. swap is
// the held call to rotate into the active slot after hanging up the active
// one, empty when no held call exists.
type buttonDecision struct {
	action buttonAction
	target string
	swap   string
}

// buttonPress evaluates the button policy against the current membership,
// strict priority incoming > active > held > none. It has no side effects;
// the caller issues the telephony requests.
func (r *callRegistry) buttonPress() buttonDecision {
	if r.incoming != nil {
		if len(r.entries) == 1 {
			return buttonDecision{action: buttonAnswer, target: r.incoming.path}
		}
		return buttonDecision{action: buttonHoldAndAnswer, target: r.incoming.path}
	}

	if e := latest(r.active); e != nil {
		d := buttonDecision{action: buttonHangupActive, target: e.path}
		if h := latest(r.held); h != nil {
			d.swap = h.path
		}
		return d
	}

	if e := latest(r.held); e != nil {
		return buttonDecision{action: buttonHangupHeld, target: e.path}
	}

	return buttonDecision{}
}

// latest picks the most recently registered entry of a view.
func latest(view map[string]*callEntry) *callEntry {
	var best *callEntry
	for _, e := range view {
		if best == nil || e.seq > best.seq {
			best = e
		}
	}
	return best
}
