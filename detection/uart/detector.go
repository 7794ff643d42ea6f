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

// Package uart detects MFRC522 readers behind USB serial bridges
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-cardbridge/detection"
	"github.com/ZaparooProject/go-cardbridge/internal/transport"
	"github.com/ZaparooProject/go-cardbridge/mfrc522"
	"github.com/ZaparooProject/go-cardbridge/transport/uart"
)

// probeTimeout bounds how long a freshly opened port may stay silent
const probeTimeout = 500 * time.Millisecond

// knownBridges are USB serial chips commonly soldered onto UART reader
// modules.
var knownBridges = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"067B:2303": "PL2303",
}

// listFunc and probeFunc are replaced in tests
type (
	listFunc  func() ([]*enumerator.PortDetails, error)
	probeFunc func(path string) (byte, error)
)

// detector implements the Detector interface for serial ports
type detector struct {
	list  listFunc
	probe probeFunc
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{
		list:  enumerator.GetDetailedPortsList,
		probe: probeVersion,
	}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(mfrc522.BusUART)
}

// Detect lists USB serial ports and, unless passive, reads the version
// register of every port that is not blocked or ignored.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}

		device, ok := d.inspect(port, opts)
		if ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) inspect(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if !port.IsUSB || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	vidpid := detection.FormatVIDPID(port.VID, port.PID)
	if detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  string(mfrc522.BusUART),
		Path:       port.Name,
		Name:       portName(port),
		Confidence: detection.Low,
		Metadata: map[string]string{
			"vidpid": vidpid,
			"serial": port.SerialNumber,
		},
	}
	if bridge, ok := knownBridges[vidpid]; ok {
		device.Confidence = detection.Medium
		device.Metadata["bridge"] = bridge
	}

	if opts.Mode == detection.Passive {
		return device, true
	}

	version, err := d.probe(port.Name)
	if err != nil || !opts.IsAcceptedVersion(version) {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.High
	device.Metadata["version"] = fmt.Sprintf("0x%02X", version)
	return device, true
}

func portName(port *enumerator.PortDetails) string {
	if port.Product != "" {
		return strings.TrimSpace(port.Product)
	}
	return "USB serial " + port.Name
}

// probeVersion opens the port at the reset baud rate and reads VersionReg,
// giving a module that is still powering up until probeTimeout to answer
func probeVersion(path string) (byte, error) {
	bus, err := uart.New(path, uart.DefaultBaudRate)
	if err != nil {
		return 0, err
	}
	defer func() { _ = bus.Close() }()

	device, err := mfrc522.New(bus)
	if err != nil {
		return 0, err
	}
	return transport.WaitReady(probeTimeout, device.Version)
}
