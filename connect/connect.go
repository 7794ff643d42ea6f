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

// Package connect opens an MFRC522 reader named by configuration or found
// by auto-detection.
package connect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"periph.io/x/conn/v3/physic"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
	"github.com/ZaparooProject/go-cardbridge/detection"
	// Import all detectors to register them
	detecti2c "github.com/ZaparooProject/go-cardbridge/detection/i2c"
	_ "github.com/ZaparooProject/go-cardbridge/detection/uart"
	"github.com/ZaparooProject/go-cardbridge/mfrc522"
	"github.com/ZaparooProject/go-cardbridge/transport/i2c"
	"github.com/ZaparooProject/go-cardbridge/transport/spi"
	"github.com/ZaparooProject/go-cardbridge/transport/uart"
)

// opener holds the constructors Open uses; tests replace them.
type opener struct {
	spi    func(path string, speed physic.Frequency) (mfrc522.Bus, error)
	i2c    func(bus string, addr uint16) (mfrc522.Bus, error)
	uart   func(path string, baud int) (mfrc522.Bus, error)
	detect func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)
	log    *slog.Logger
}

func defaultOpener(log *slog.Logger) *opener {
	return &opener{
		spi: func(path string, speed physic.Frequency) (mfrc522.Bus, error) {
			t, err := spi.New(path, speed)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
		i2c: func(bus string, addr uint16) (mfrc522.Bus, error) {
			t, err := i2c.New(bus, addr)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
		uart: func(path string, baud int) (mfrc522.Bus, error) {
			t, err := uart.New(path, baud)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
		detect: detection.DetectAll,
		log:    log,
	}
}

// Open returns an initialized reader. An empty transport in cfg runs
// auto-detection and takes the most confident candidate.
func Open(ctx context.Context, cfg cardbridge.ReaderConfig, log *slog.Logger, opts ...mfrc522.Option) (*mfrc522.Device, error) {
	if log == nil {
		log = slog.Default()
	}
	return defaultOpener(log).open(ctx, cfg, opts...)
}

func (o *opener) open(ctx context.Context, cfg cardbridge.ReaderConfig, opts ...mfrc522.Option) (*mfrc522.Device, error) {
	bus, err := o.bus(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]mfrc522.Option{mfrc522.WithLogger(o.log)}, opts...)
	device, err := mfrc522.New(bus, opts...)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	if err := device.Init(); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("failed to initialize reader: %w", err)
	}
	return device, nil
}

// bus opens the configured bus, or the best detected one.
func (o *opener) bus(ctx context.Context, cfg cardbridge.ReaderConfig) (mfrc522.Bus, error) {
	if cfg.Transport == "" {
		device, err := o.autoDetect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cfg.Transport = device.Transport
		cfg.Path = device.Path
	}

	busType, err := mfrc522.ParseBusType(strings.ToLower(cfg.Transport))
	if err != nil {
		return nil, err
	}
	o.log.Info("opening reader", "transport", busType, "path", cfg.Path)

	var bus mfrc522.Bus
	switch busType {
	case mfrc522.BusSPI:
		bus, err = o.spi(cfg.Path, physic.Frequency(cfg.SpeedHz)*physic.Hertz)
	case mfrc522.BusI2C:
		busPath, addr, parseErr := detecti2c.ParseDevicePath(cfg.Path)
		if parseErr != nil {
			return nil, parseErr
		}
		bus, err = o.i2c(busPath, addr)
	default:
		bus, err = o.uart(cfg.Path, cfg.BaudRate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s transport: %w", strings.ToUpper(string(busType)), err)
	}
	return bus, nil
}

func (o *opener) autoDetect(ctx context.Context, cfg cardbridge.ReaderConfig) (detection.DeviceInfo, error) {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = cfg.IgnorePaths
	if len(cfg.AcceptedVersions) > 0 {
		opts.AcceptedVersions = opts.AcceptedVersions[:0]
		for _, v := range cfg.AcceptedVersions {
			opts.AcceptedVersions = append(opts.AcceptedVersions, byte(v))
		}
	}

	o.log.Info("auto-detecting MFRC522 readers")
	devices, err := o.detect(ctx, &opts)
	if len(devices) == 0 {
		if err == nil {
			err = detection.ErrNoDevicesFound
		}
		return detection.DeviceInfo{}, fmt.Errorf("failed to detect reader: %w", err)
	}
	if err != nil {
		o.log.Debug("some detectors failed", "error", err)
	}

	o.log.Info("reader detected", "device", devices[0].String())
	return devices[0], nil
}
