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

// Package i2c detects MFRC522 readers on I2C buses
package i2c

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-cardbridge/detection"
	"github.com/ZaparooProject/go-cardbridge/mfrc522"
)

const (
	// DefaultAddress is the MFRC522 address with ADR_0..ADR_5 strapped low
	DefaultAddress = 0x28

	// lastAddress bounds the scan: boards expose at most three address pins
	lastAddress = 0x2F

	versionRegister = 0x37
)

// detector implements the Detector interface for I2C devices
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return string(mfrc522.BusI2C)
}

// Detect searches for readers on the I2C buses of this host
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	return detectBuses(ctx, opts)
}

// candidateAddresses returns the addresses to consider in the given mode.
// Passive mode cannot see anything on the bus, so it names only the
// default address.
func candidateAddresses(mode detection.Mode) []uint16 {
	if mode == detection.Passive {
		return []uint16{DefaultAddress}
	}
	addrs := make([]uint16, 0, lastAddress-DefaultAddress+1)
	for a := uint16(DefaultAddress); a <= lastAddress; a++ {
		addrs = append(addrs, a)
	}
	return addrs
}

// devicePath formats a bus and address as "/dev/i2c-1:0x28"
func devicePath(busPath string, addr uint16) string {
	return fmt.Sprintf("%s:0x%02X", busPath, addr)
}

// ParseDevicePath splits a detected path into the bus path and address.
// A path without an address uses DefaultAddress.
func ParseDevicePath(path string) (busPath string, addr uint16, err error) {
	idx := strings.LastIndex(path, ":")
	if idx < 0 {
		return path, DefaultAddress, nil
	}
	v, err := strconv.ParseUint(path[idx+1:], 0, 7)
	if err != nil {
		return "", 0, fmt.Errorf("invalid I2C address in %q: %w", path, err)
	}
	return path[:idx], uint16(v), nil
}

// busNumber extracts N from /dev/i2c-N
func busNumber(path string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(filepath.Base(path), "i2c-%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// newDeviceInfo describes a candidate; version is nil when not probed
func newDeviceInfo(busPath string, addr uint16, version *byte) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  string(mfrc522.BusI2C),
		Path:       devicePath(busPath, addr),
		Name:       fmt.Sprintf("MFRC522 on %s", busPath),
		Confidence: detection.Medium,
		Metadata: map[string]string{
			"bus":     busPath,
			"address": fmt.Sprintf("0x%02X", addr),
		},
	}
	if version != nil {
		device.Confidence = detection.High
		device.Metadata["version"] = fmt.Sprintf("0x%02X", *version)
	}
	return device
}
