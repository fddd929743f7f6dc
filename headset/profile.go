package headset

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"golang.org/x/sys/unix"
)

const (
	bluezService                 = "org.bluez"
	bluezProfileManagerInterface = bluezService + ".ProfileManager1"
	bluezProfileInterface        = bluezService + ".Profile1"
	bluezErrorNotSupported       = "org.bluez.Error.NotSupported"
	bluezErrorInvalidArguments   = "org.bluez.Error.InvalidArguments"

	introspectInterface = "org.freedesktop.DBus.Introspectable"
)

// Profile identity defaults. The audio-gateway role of the Headset Profile
// is the only profile this backend implements.
const (
	DefaultProfilePath dbus.ObjectPath = "/Profile/HSPAGProfile"
	HSPAGProfileUUID                   = "00001112-0000-1000-8000-00805f9b34fb"
)

// profileHandler is exported on the bus as org.bluez.Profile1. The bus
// library dispatches each call on its own goroutine and enforces the
// argument signatures by reflection; every method forwards to the backend
// loop, which is the only mutator of state.
type profileHandler struct {
	backend *Backend
}

// Release is the Bluetooth daemon telling us the profile is going away; an
// acknowledgment is all it needs.
func (p *profileHandler) Release() *dbus.Error { return nil }

func (p *profileHandler) Cancel() *dbus.Error { return nil }

// RequestDisconnection acknowledges only. The actual teardown arrives
// through the I/O hangup on the control channel, never through this call.
func (p *profileHandler) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	return nil
}

// NewConnection accepts the control channel for a device. The descriptor is
// ours from this point on: it is wrapped into the transport on success and
// closed on every failure path.
func (p *profileHandler) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, options map[string]dbus.Variant) *dbus.Error {
	return p.backend.newConnection(device, int(fd), options)
}

func (b *Backend) newConnection(devicePath dbus.ObjectPath, fd int, options map[string]dbus.Variant) *dbus.Error {
	b.logger.Debug("NewConnection", "device", devicePath, "fd", fd, "options", len(options))

	_, err := b.do(context.Background(), func() (interface{}, error) {
		return nil, b.attach(devicePath, fd)
	})
	if err != nil {
		unix.Close(fd)
		b.logger.Error("unable to handle new connection", "device", devicePath, "error", err)
		return dbus.NewError(bluezErrorInvalidArguments, []interface{}{"unable to handle new connection"})
	}
	return nil
}

// attach resolves the device and installs the transport; loop side. The
// caller still owns fd if an error is returned.
func (b *Backend) attach(devicePath dbus.ObjectPath, fd int) error {
	dev, err := b.discovery.DeviceByPath(context.Background(), devicePath)
	if err != nil {
		return fmt.Errorf("resolve device %s: %w", devicePath, err)
	}

	if b.rfcomm != nil {
		// A reconnect can outrun the hangup of the previous channel. Tear
		// the old transport down before installing the new one so its
		// descriptor cannot leak.
		b.logger.Info("replacing existing control channel", "device", b.rfcomm.device.Address)
		b.teardownTransport()
	}

	file := os.NewFile(uintptr(fd), "rfcomm")
	if file == nil {
		return errors.New("invalid control channel descriptor")
	}
	b.rfcomm = newRFCOMMTransport(b, dev, file, file)
	b.logger.Info("control channel connected", "device", dev.Address, "path", devicePath)

	b.refreshCalls()
	return nil
}

// AttachTransport installs an already-connected control channel, bypassing
// profile delivery. Used with SerialDialer against a pre-bound rfcomm tty;
// dev may carry empty addresses, in which case audio acquisition will fail
// cleanly.
func (b *Backend) AttachTransport(ctx context.Context, conn Transport, dev *Device) error {
	_, err := b.do(ctx, func() (interface{}, error) {
		if b.rfcomm != nil {
			b.teardownTransport()
		}
		b.rfcomm = newRFCOMMTransport(b, dev, conn, nil)
		b.logger.Info("control channel attached", "device", dev.Address)
		b.refreshCalls()
		return nil, nil
	})
	return err
}

// exportProfile publishes the Profile1 object and its introspection data on
// the profile path.
func (b *Backend) exportProfile() error {
	if err := b.bus.Export(&profileHandler{backend: b}, b.profilePath, bluezProfileInterface); err != nil {
		return fmt.Errorf("export profile: %w", err)
	}

	node := &introspect.Node{
		Name: string(b.profilePath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: bluezProfileInterface,
				Methods: []introspect.Method{
					{Name: "Release"},
					{Name: "RequestDisconnection", Args: []introspect.Arg{
						{Name: "device", Type: "o", Direction: "in"},
					}},
					{Name: "NewConnection", Args: []introspect.Arg{
						{Name: "device", Type: "o", Direction: "in"},
						{Name: "fd", Type: "h", Direction: "in"},
						{Name: "opts", Type: "a{sv}", Direction: "in"},
					}},
				},
			},
		},
	}
	if err := b.bus.Export(introspect.NewIntrospectable(node), b.profilePath, introspectInterface); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}
	return nil
}

func (b *Backend) unexportProfile() {
	b.bus.Export(nil, b.profilePath, bluezProfileInterface)
	b.bus.Export(nil, b.profilePath, introspectInterface)
}

// registerProfile announces the handler to the Bluetooth daemon. The reply
// is informational: NotSupported means the profile is disabled in the daemon
// and the feature stays off; any other error is logged and otherwise
// ignored.
func (b *Backend) registerProfile() {
	b.logger.Debug("registering profile", "path", b.profilePath, "uuid", b.profileUUID)

	opts := map[string]dbus.Variant{}
	b.callAsync(bluezService, "/org/bluez", bluezProfileManagerInterface+".RegisterProfile",
		func(call *dbus.Call) {
			if call.Err == nil {
				b.logger.Debug("profile registered", "path", b.profilePath)
				return
			}
			var dbusErr dbus.Error
			if errors.As(call.Err, &dbusErr) && dbusErr.Name == bluezErrorNotSupported {
				b.logger.Info("profile disabled in bluetooth daemon", "uuid", b.profileUUID)
				return
			}
			b.logger.Error("RegisterProfile failed", "error", call.Err)
		},
		b.profilePath, b.profileUUID, opts)
}

func (b *Backend) unregisterProfile() {
	b.bus.Object(bluezService, "/org/bluez").
		Go(bluezProfileManagerInterface+".UnregisterProfile", dbus.FlagNoReplyExpected, nil, b.profilePath)
}
