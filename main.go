package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"bluon.io/audio/hspagw/headset"
)

func main() {
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("rfcomm-tty", "", "Pre-bound rfcomm tty to use instead of profile registration (e.g. /dev/rfcomm0)")
	flag.Int("baud-rate", 115200, "Baud rate for the rfcomm tty")
	flag.String("device-address", "", "Headset Bluetooth address in tty mode (XX:XX:XX:XX:XX:XX)")
	flag.String("adapter-address", "", "Local adapter Bluetooth address in tty mode")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logger.Error("Failed to connect to the system bus", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	builder := headset.NewConfigBuilder().
		WithBus(conn).
		WithDiscovery(headset.NewBlueZDiscovery(logger.With("component", "discovery"))).
		WithLogger(logger.With("component", "headset"))
	if config.RFCOMMTTY != "" {
		builder = builder.WithoutProfileRegistration()
	}

	headsetConfig, err := builder.Build()
	if err != nil {
		logger.Error("Failed to create backend config", "error", err)
		os.Exit(1)
	}

	backend, err := headset.New(context.Background(), headsetConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- backend.Loop(loopCtx)
	}()

	logger.Info("Starting HSP audio gateway")

	if config.RFCOMMTTY != "" {
		dialer := headset.SerialDialer{
			PortName: config.RFCOMMTTY,
			BaudRate: config.BaudRate,
		}
		transport, err := dialer.Dial(context.Background())
		if err != nil {
			logger.Error("Failed to open rfcomm tty", "error", err)
			os.Exit(1)
		}
		dev := &headset.Device{
			Address:        config.DeviceAddress,
			AdapterAddress: config.AdapterAddress,
		}
		if err := backend.AttachTransport(context.Background(), transport, dev); err != nil {
			logger.Error("Failed to attach rfcomm tty", "error", err)
			os.Exit(1)
		}
		logger.Info("Attached rfcomm tty", "tty", config.RFCOMMTTY, "device", config.DeviceAddress)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Backend: backend,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	logger.Info("Stopping event loop")
	cancelLoop()
	<-loopErr

	if err := backend.Close(); err != nil {
		logger.Error("Failed to close backend", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}
