package headset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/device"
)

// Device describes the remote headset as known to the discovery
// collaborator.
type Device struct {
	// Path is the Bluetooth daemon's object path for the device.
	Path dbus.ObjectPath
	// Address is the device address in canonical XX:XX:XX:XX:XX:XX form.
	Address string
	// AdapterAddress is the local adapter's address, needed to bind the
	// audio socket.
	AdapterAddress string
}

// Discovery resolves device object paths and receives gain-change
// notifications for the transports it handed out.
type Discovery interface {
	// DeviceByPath resolves the object path delivered with NewConnection.
	// An error means the device is not known and the connection must be
	// refused.
	DeviceByPath(ctx context.Context, path dbus.ObjectPath) (*Device, error)

	// SpeakerGainChanged and MicrophoneGainChanged fire when the headset
	// reports a gain change over the control channel. There is no echo back
	// to the headset for these.
	SpeakerGainChanged(dev *Device, gain uint16)
	MicrophoneGainChanged(dev *Device, gain uint16)
}

// VolumeControl is notified when the audio path toward the headset becomes
// active or inactive.
type VolumeControl interface {
	AudioAcquired(dev *Device)
	AudioReleased()
}

// nopVolumeControl is the default when no volume-control collaborator is
// configured.
type nopVolumeControl struct{}

func (nopVolumeControl) AudioAcquired(*Device) {}
func (nopVolumeControl) AudioReleased()        {}

// BlueZDiscovery resolves devices through the Bluetooth daemon's Device1 and
// Adapter1 interfaces. Gain notifications are logged; wiring them into a
// mixer is the audio router's concern.
type BlueZDiscovery struct {
	logger *slog.Logger
}

// NewBlueZDiscovery returns a Discovery backed by the Bluetooth daemon.
func NewBlueZDiscovery(logger *slog.Logger) *BlueZDiscovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlueZDiscovery{logger: logger}
}

func (d *BlueZDiscovery) DeviceByPath(ctx context.Context, path dbus.ObjectPath) (*Device, error) {
	dev, err := device.NewDevice1(path)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", path, err)
	}
	adpt, err := adapter.NewAdapter1(dev.Properties.Adapter)
	if err != nil {
		return nil, fmt.Errorf("adapter for %s: %w", path, err)
	}
	return &Device{
		Path:           path,
		Address:        dev.Properties.Address,
		AdapterAddress: adpt.Properties.Address,
	}, nil
}

func (d *BlueZDiscovery) SpeakerGainChanged(dev *Device, gain uint16) {
	d.logger.Debug("speaker gain changed", "device", dev.Address, "gain", gain)
}

func (d *BlueZDiscovery) MicrophoneGainChanged(dev *Device, gain uint16) {
	d.logger.Debug("microphone gain changed", "device", dev.Address, "gain", gain)
}
