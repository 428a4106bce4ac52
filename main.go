package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/sbdgw/jspr"
	"i4.energy/across/sbdgw/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", modem.DefaultBaudRate, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("log-format", "json", "Log format (json, text)")
	flag.Bool("verify-mt-crc", false, "Drop incoming messages with a bad CRC trailer")
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to a YAML configuration file")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(config)

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			Mode: &serial.Mode{
				BaudRate: config.BaudRate,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			},
		}).
		WithSendTimeout(config.SendTimeout).
		WithReceiveTimeout(config.ReceiveTimeout).
		WithMTCRCVerification(config.VerifyMTCRC).
		WithCallbacks(callbacks(logger.With("component", "modem"))).
		WithLogger(logger.With("component", "modem")).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	m, err := modem.New(modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		os.Exit(1)
	}

	beginCtx, cancelBegin := context.WithTimeout(context.Background(), 30*time.Second)
	err = m.Begin(beginCtx)
	cancelBegin()
	if err != nil {
		logger.Error("Failed to open modem session", "error", err, "port", config.SerialPort)
		os.Exit(1)
	}

	logger.Info("Starting SBD Gateway", "port", config.SerialPort, "baud_rate", config.BaudRate)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := m.Loop(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Modem loop stopped", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: NewServer(logger.With("component", "server"), m),
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing modem connection")
	if err := m.Do(ctx, func(m *modem.Modem) error { return m.End() }); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}
	stopLoop()
	<-loopDone
}

func newLogger(config *Config) *slog.Logger {
	var level slog.Level
	switch config.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if config.LogFormat == "text" {
		return slog.New(newColorHandler(os.Stderr, level))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// callbacks logs what the modem reports while the gateway runs unattended.
func callbacks(logger *slog.Logger) modem.Callbacks {
	return modem.Callbacks{
		MOComplete: func(id uint8, status modem.MessageStatus) {
			if status == modem.StatusOK {
				logger.Info("Message delivered", "id", id)
				return
			}
			logger.Warn("Message failed", "id", id, "status", status)
		},
		MTComplete: func(id uint8, status modem.MessageStatus) {
			logger.Info("Message received", "id", id, "status", status)
		},
		ConstellationState: func(s jspr.ConstellationState) {
			logger.Debug("Constellation state", "visible", s.Visible, "bars", s.SignalBars)
		},
		MessageProvisioning: func(p jspr.MessageProvisioning) {
			logger.Info("Topics provisioned", "count", len(p.Topics))
		},
	}
}
