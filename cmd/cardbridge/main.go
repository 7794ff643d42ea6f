// go-cardbridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardbridge.
//
// go-cardbridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardbridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardbridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
	"github.com/ZaparooProject/go-cardbridge/connect"
	"github.com/ZaparooProject/go-cardbridge/gatt"
	"github.com/ZaparooProject/go-cardbridge/indicator"
)

type flags struct {
	configPath *string
	transport  *string
	devicePath *string
	debug      *bool
	noColor    *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "Path to a YAML config file. Leave empty for built-in defaults."),
		transport: flag.String("transport", "",
			"Reader bus: spi, i2c or uart. Overrides the config file; \"auto\" forces auto-detection."),
		devicePath: flag.String("device", "", "Reader device path (e.g. /dev/spidev0.0, /dev/i2c-1:0x28, /dev/ttyUSB0)"),
		debug:      flag.Bool("debug", false, "Enable debug output"),
		noColor:    flag.Bool("no-color", false, "Disable colored log output"),
	}
	flag.Parse()
	return f
}

func loadConfig(f *flags) (*cardbridge.Config, error) {
	cfg := cardbridge.DefaultConfig()
	if *f.configPath != "" {
		loaded, err := cardbridge.LoadConfig(*f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	switch *f.transport {
	case "":
	case "auto":
		cfg.Reader.Transport = ""
	default:
		cfg.Reader.Transport = *f.transport
	}
	if *f.devicePath != "" {
		cfg.Reader.Path = *f.devicePath
	}
	if *f.debug {
		cfg.Log.Debug = true
	}
	if *f.noColor {
		cfg.Log.NoColor = true
	}
	return cfg, cfg.Validate()
}

// unavailableReader stands in when the bus could not be opened, so that the
// regular startup check reports the fault.
type unavailableReader struct {
	err error
}

func (u unavailableReader) Version() (byte, error)                         { return 0, u.err }
func (u unavailableReader) RequestA() (cardbridge.ATQA, error)             { return cardbridge.ATQA{}, u.err }
func (u unavailableReader) Select(cardbridge.ATQA) (cardbridge.UID, error) { return cardbridge.UID{}, u.err }
func (u unavailableReader) WriteBlock(uint8, cardbridge.Block) error       { return u.err }

func openIndicators(cfg *cardbridge.Config, log *slog.Logger) *indicator.Pair {
	leds, err := indicator.New(cfg.Indicators)
	if err != nil {
		log.Warn("indicators unavailable", "error", err)
		return &indicator.Pair{Heartbeat: &indicator.Noop{}, Fault: &indicator.Noop{}}
	}
	return leds
}

func run() error {
	cfg, err := loadConfig(parseFlags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.SlogLevel()
	log := cardbridge.NewLogger(os.Stderr, level, cfg.Log.NoColor)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	leds := openIndicators(cfg, log)
	defer func() { _ = leds.Release() }()

	var reader cardbridge.Reader
	device, err := connect.Open(ctx, cfg.Reader, log.With("component", "mfrc522"))
	if err != nil {
		reader = unavailableReader{err: err}
	} else {
		defer func() { _ = device.Close() }()
		reader = device
	}

	stack := gatt.NewStack(
		gatt.WithStackLogger(log.With("component", "gatt")),
		gatt.WithDeviceID(cfg.BLE.DeviceID),
		gatt.WithServerOptions(gatt.WithLogger(log.With("component", "gatt"))),
	)
	defer func() { _ = stack.Close() }()

	err = cardbridge.Start(ctx, cardbridge.StartConfig{
		Guard:            cardbridge.NewGuard(reader),
		Stack:            stack,
		Logger:           log.With("component", "bridge"),
		Indicators:       leds.Indicators(),
		Advertisement:    cfg.Advertisement(),
		Profile:          cfg.Profile(),
		AcceptedVersions: cfg.Versions(),
		BridgeOptions: []cardbridge.BridgeOption{
			cardbridge.WithWriteBlock(cfg.Reader.WriteBlock),
			cardbridge.WithBridgeLogger(log.With("component", "bridge")),
		},
		LoopOptions: []cardbridge.LoopOption{
			cardbridge.WithPaceInterval(cfg.Loop.PaceInterval),
			cardbridge.WithNotificationPayload([]byte(cfg.Loop.Notification)),
			cardbridge.WithLoopLogger(log.With("component", "loop")),
		},
	})

	var fault *cardbridge.StartupFaultError
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.As(err, &fault):
		log.Error("startup fault, idling", "error", err)
	case err != nil:
		return err
	default:
		log.Info("bridge stopped, idling")
	}

	cardbridge.Idle(ctx)
	return nil
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cardbridge: %v\n", err)
		os.Exit(1)
	}
}
