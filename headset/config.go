package headset

import (
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// Config carries the collaborators and identity of a Backend. Build one with
// NewConfigBuilder.
type Config struct {
	// Bus is the system-bus connection (required).
	Bus Bus
	// Discovery resolves device object paths (required).
	Discovery Discovery
	// VolumeControl is notified of audio-path activity. Defaults to a no-op.
	VolumeControl VolumeControl
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// ProfilePath and ProfileUUID identify the profile toward the Bluetooth
	// daemon. Default to the HSP audio-gateway identity.
	ProfilePath dbus.ObjectPath
	ProfileUUID string
	// RingInterval is the pause between repeated RING alerts. Defaults to
	// 3 seconds.
	RingInterval time.Duration
	// SkipProfileRegistration leaves the profile unexported and
	// unregistered. Used when the control channel is attached directly
	// (tty mode).
	SkipProfileRegistration bool
}

func (c *Config) validate() error {
	if c.Bus == nil {
		return ErrNoBus
	}
	if c.Discovery == nil {
		return ErrNoDiscovery
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.VolumeControl == nil {
		c.VolumeControl = nopVolumeControl{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProfilePath == "" {
		c.ProfilePath = DefaultProfilePath
	}
	if c.ProfileUUID == "" {
		c.ProfileUUID = HSPAGProfileUUID
	}
	if c.RingInterval == 0 {
		c.RingInterval = 3 * time.Second
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithBus(bus Bus) *ConfigBuilder {
	b.config.Bus = bus
	return b
}

func (b *ConfigBuilder) WithDiscovery(d Discovery) *ConfigBuilder {
	b.config.Discovery = d
	return b
}

func (b *ConfigBuilder) WithVolumeControl(v VolumeControl) *ConfigBuilder {
	b.config.VolumeControl = v
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithRingInterval(d time.Duration) *ConfigBuilder {
	b.config.RingInterval = d
	return b
}

func (b *ConfigBuilder) WithProfile(path dbus.ObjectPath, uuid string) *ConfigBuilder {
	b.config.ProfilePath = path
	b.config.ProfileUUID = uuid
	return b
}

// WithoutProfileRegistration disables profile export and registration for
// directly attached transports.
func (b *ConfigBuilder) WithoutProfileRegistration() *ConfigBuilder {
	b.config.SkipProfileRegistration = true
	return b
}

// Build validates the assembled configuration and applies defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
