// beacon-hr broadcasts an oversized extended advertising payload over the
// coded PHY while exposing connectable heart-rate and battery telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/codedphy/beacon/internal/config"
	"github.com/codedphy/beacon/internal/log"
	"github.com/codedphy/beacon/pkg/peripheral"
	"github.com/codedphy/beacon/pkg/transport"
	"github.com/codedphy/beacon/pkg/transport/bluez"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		configPath     string
		adapterID      string
		logFile        string
		startupTimeout time.Duration
	)
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&adapterID, "adapter", "", "Bluetooth adapter to use (overrides config)")
	flag.StringVar(&logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	flag.DurationVar(&startupTimeout, "startup-timeout", 10*time.Second, "Set timeout for advertising startup.")
	flag.Parse()

	if !debug {
		if debugEnv, ok := os.LookupEnv("BEACON_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelInfo)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		writeErr("Invalid configuration: %s", err)
		return
	}
	if adapterID != "" {
		cfg.Device.Adapter = adapterID
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}
	if cfg.Logging.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	radio, err := bluez.NewRadio(cfg.Device.Adapter)
	if err != nil {
		writeErr("Error: %s", err)
		return
	}
	defer radio.Close()

	notifier, err := radio.ExportServices()
	if err != nil {
		writeErr("Failed to register GATT services: %s", err)
		return
	}

	statusSink := transport.LogStatus{}
	device, err := peripheral.New(radio, notifier, statusSink, cfg.Peripheral())
	if err != nil {
		writeErr("Invalid advertising configuration: %s", err)
		return
	}
	if err := radio.SetConnectionObserver(device); err != nil {
		writeErr("Failed to register connection callbacks: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := device.Start(ctx); err != nil {
		writeErr("Failed to start advertising: %s", err)
		return
	}
	defer device.Stop()
	log.Info("beacon: advertising on %s as %q", cfg.Device.Adapter, cfg.Device.Name)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// Run-status blink, the software stand-in for the board's run LED.
	blink := time.NewTicker(time.Second)
	defer blink.Stop()
	ledOn := false
	for {
		select {
		case <-blink.C:
			ledOn = !ledOn
			statusSink.SetRunning(ledOn)
		case sig := <-sigs:
			log.Info("beacon: received %s, shutting down", sig)
			status = 0
			return
		}
	}
}
