package headset

import (
	"github.com/godbus/dbus/v5"
)

// callAsync issues a method call expecting a reply and records the
// continuation. Completion is delivered on the backend's shared reply
// channel; the loop looks the call up, removes the bookkeeping entry and
// runs the continuation exactly once, whether the reply is a result or an
// error. Continuation code runs on the loop and may mutate backend state.
func (b *Backend) callAsync(dest string, path dbus.ObjectPath, method string, done func(*dbus.Call), args ...interface{}) {
	call := b.bus.Object(dest, path).Go(method, 0, b.replies, args...)
	b.pending[call] = done
}

// completeCall resolves one reply from the shared channel. Replies for calls
// that are no longer tracked (dropped at shutdown) are ignored.
func (b *Backend) completeCall(call *dbus.Call) {
	done, ok := b.pending[call]
	if !ok {
		return
	}
	delete(b.pending, call)
	done(call)
}

// dropPending force-releases every outstanding request without invoking its
// continuation. Only used at shutdown; there is no per-request cancellation
// or timeout.
func (b *Backend) dropPending() {
	clear(b.pending)
}
