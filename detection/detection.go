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

// Package detection finds MFRC522 readers attached over serial or I2C.
// Detectors for each bus register themselves on import.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no reader found")
	ErrDetectionTimeout    = errors.New("detection timed out")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection is allowed to be
type Mode int

const (
	// Passive lists candidates without talking to them
	Passive Mode = iota
	// Safe opens candidates and reads the version register only
	Safe
)

// Confidence ranks how likely a candidate is a reader
type Confidence int

const (
	// Low means the device exists but nothing suggests a reader
	Low Confidence = iota
	// Medium means the bus address or USB bridge fits a reader
	Medium
	// High means the version register answered with a known value
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes one candidate reader
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// String returns a human-readable description
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s (%s, confidence %s)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options configures detection
type Options struct {
	// Blocklist holds VID:PID pairs that are never opened
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely
	IgnorePaths []string
	// AcceptedVersions are the version register values counted as a reader
	AcceptedVersions []byte
	Mode             Mode
	Timeout          time.Duration
}

// DefaultOptions returns safe-mode options with the default blocklist
func DefaultOptions() Options {
	return Options{
		Mode:             Safe,
		Timeout:          5 * time.Second,
		Blocklist:        DefaultBlocklist(),
		AcceptedVersions: []byte{0x91, 0x92},
	}
}

// Detector finds readers on one kind of bus
type Detector interface {
	// Transport returns the bus name, e.g. "uart" or "i2c"
	Transport() string

	// Detect lists candidates on that bus
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
)

// RegisterDetector adds a detector, replacing any with the same transport
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors ordered by transport name
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Transport() < out[j].Transport()
	})
	return out
}

// DetectAll runs every registered detector and returns candidates ordered
// by confidence, highest first. Unsupported buses are skipped.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range Detectors() {
		found, err := d.Detect(ctx, opts)
		switch {
		case err == nil:
			devices = append(devices, found...)
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
	}

	if len(devices) == 0 {
		if ctx.Err() != nil {
			return nil, ErrDetectionTimeout
		}
		if len(errs) > 0 {
			return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}

// IsAcceptedVersion reports whether v is one of the accepted version values
func (o *Options) IsAcceptedVersion(v byte) bool {
	for _, a := range o.AcceptedVersions {
		if a == v {
			return true
		}
	}
	return false
}
