package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// RFCOMMTTY is an optional pre-bound rfcomm tty (e.g. "/dev/rfcomm0").
	// When set, profile registration is skipped and the control channel is
	// opened over the tty instead.
	RFCOMMTTY string
	// BaudRate is the baud rate for the rfcomm tty (e.g. 115200)
	BaudRate int
	// DeviceAddress is the headset's Bluetooth address in tty mode
	DeviceAddress string
	// AdapterAddress is the local adapter's Bluetooth address in tty mode
	AdapterAddress string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.LogLevel = "info"
		c.BaudRate = 115200
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if tty := os.Getenv("RFCOMM_TTY"); tty != "" {
			c.RFCOMMTTY = tty
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if addr := os.Getenv("DEVICE_ADDRESS"); addr != "" {
			c.DeviceAddress = addr
		}

		if addr := os.Getenv("ADAPTER_ADDRESS"); addr != "" {
			c.AdapterAddress = addr
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "rfcomm-tty":
				c.RFCOMMTTY = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "device-address":
				c.DeviceAddress = f.Value.String()
			case "adapter-address":
				c.AdapterAddress = f.Value.String()
			}

		})
		return nil
	}

}
